package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/logging"
	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/models"
	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/resilience"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PostgresStore calls the ledger's stored procedures. Balance arithmetic and
// locking live entirely in the database; every method here is one statement.
type PostgresStore struct {
	db     *sql.DB
	exec   *resilience.Executor
	logger *logging.Logger
}

func NewPostgresStore(db *sql.DB, exec *resilience.Executor, logger *logging.Logger) *PostgresStore {
	return &PostgresStore{
		db:     db,
		exec:   exec,
		logger: logging.OrGlobal(logger).Named("ledger"),
	}
}

var _ Store = (*PostgresStore)(nil)

// procedureErrors maps the tokens raised by the procedures to sentinels.
var procedureErrors = map[string]error{
	"ALREADY_LOCKED":          ErrAlreadyLocked,
	"NO_ACTIVE_LOCK":          ErrNoActiveLock,
	"INSUFFICIENT_FUNDS":      ErrInsufficientFunds,
	"REFUND_EXCEEDS_ORIGINAL": ErrRefundExceedsOriginal,
	"NOT_REFUNDABLE":          ErrNotRefundable,
	"NOT_COMPLETED":           ErrNotCompleted,
	"ALREADY_FINALIZED":       ErrAlreadyFinalized,
	"DUPLICATE_REFERENCE":     ErrDuplicateReference,
	"TRANSACTION_NOT_FOUND":   ErrTransactionNotFound,
	"WALLET_NOT_FOUND":        ErrWalletNotFound,
	"INVALID_AMOUNT":          ErrInvalidAmount,
}

// procedureError turns a procedure's failure message into a typed error.
func procedureError(message string) error {
	token := message
	if i := strings.IndexAny(message, ": "); i > 0 {
		token = message[:i]
	}
	if err, ok := procedureErrors[strings.ToUpper(token)]; ok {
		return err
	}
	return resilience.NewError(http.StatusUnprocessableEntity, message)
}

// classify tags database errors with a status class. Errors without a pq
// code (broken connections, timeouts) stay untagged and are retried.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}

	switch {
	case pqErr.Code == "P0001":
		return procedureError(pqErr.Message)
	case pqErr.Code == "23505":
		return ErrDuplicateReference
	case pqErr.Code == "42501":
		return resilience.WithStatus(http.StatusForbidden, err)
	case pqErr.Code == "40001", pqErr.Code == "40P01", pqErr.Code == "57014":
		return resilience.WithStatus(http.StatusServiceUnavailable, err)
	}

	switch pqErr.Code.Class() {
	case "22", "23":
		return resilience.WithStatus(http.StatusBadRequest, err)
	case "08", "53", "57":
		return resilience.WithStatus(http.StatusServiceUnavailable, err)
	}
	return resilience.WithStatus(http.StatusInternalServerError, err)
}

type procResult struct {
	success       bool
	message       sql.NullString
	transactionID sql.NullString
	balance       decimal.NullDecimal
}

// callProcedure runs a procedure returning (success, message, transaction_id, balance).
func (s *PostgresStore) callProcedure(ctx context.Context, name, query string, args ...any) (*procResult, error) {
	res, err := resilience.Execute(ctx, s.exec, name, func(ctx context.Context) (*procResult, error) {
		var r procResult
		err := s.db.QueryRowContext(ctx, query, args...).Scan(&r.success, &r.message, &r.transactionID, &r.balance)
		if err != nil {
			return nil, classify(err)
		}
		return &r, nil
	})
	if err != nil {
		s.logger.Warn("procedure failed", zap.String("procedure", name), zap.Error(err))
		return nil, err
	}
	if !res.success {
		err := procedureError(res.message.String)
		s.logger.Info("procedure rejected", zap.String("procedure", name), zap.String("message", res.message.String))
		return nil, err
	}
	return res, nil
}

func (s *PostgresStore) DepositEscrow(ctx context.Context, req EscrowDeposit) (*EscrowResult, error) {
	res, err := s.callProcedure(ctx, "deposit_escrow",
		`SELECT success, message, transaction_id, NULL::numeric FROM deposit_escrow($1, $2, $3, $4, $5, $6, $7)`,
		req.ShipmentID, req.OwnerID, req.Amount, req.Currency, string(req.Method), req.Reference, req.Metadata,
	)
	if err != nil {
		return nil, fmt.Errorf("deposit escrow for shipment %s: %w", req.ShipmentID, err)
	}
	return &EscrowResult{TransactionID: res.transactionID.String}, nil
}

func (s *PostgresStore) ReleaseEscrow(ctx context.Context, shipmentID string) (*ReleaseResult, error) {
	res, err := s.callProcedure(ctx, "release_escrow",
		`SELECT success, message, transaction_id, NULL::numeric FROM release_escrow($1)`,
		shipmentID,
	)
	if err != nil {
		return nil, fmt.Errorf("release escrow for shipment %s: %w", shipmentID, err)
	}
	return &ReleaseResult{TransactionID: res.transactionID.String, Message: res.message.String}, nil
}

func (s *PostgresStore) AdjustWallet(ctx context.Context, req Adjustment) (*AdjustmentResult, error) {
	res, err := s.callProcedure(ctx, "adjust_wallet",
		`SELECT success, message, transaction_id, new_balance FROM adjust_wallet($1, $2, $3, $4, $5, $6)`,
		req.OwnerID, req.Amount, string(req.Kind), req.Description, req.Reference, req.Metadata,
	)
	if err != nil {
		return nil, fmt.Errorf("adjust wallet of %s: %w", req.OwnerID, err)
	}
	return &AdjustmentResult{TransactionID: res.transactionID.String, NewBalance: res.balance.Decimal}, nil
}

func (s *PostgresStore) Refund(ctx context.Context, req RefundRequest) (*RefundResult, error) {
	res, err := s.callProcedure(ctx, "refund_transaction",
		`SELECT success, message, transaction_id, NULL::numeric FROM refund_transaction($1, $2, $3, $4)`,
		req.TransactionID, req.Amount, req.Reason, req.Reference,
	)
	if err != nil {
		return nil, fmt.Errorf("refund transaction %s: %w", req.TransactionID, err)
	}
	return &RefundResult{TransactionID: res.transactionID.String}, nil
}

func (s *PostgresStore) PayFromWallet(ctx context.Context, req WalletPayment) (*WalletPaymentResult, error) {
	res, err := s.callProcedure(ctx, "pay_from_wallet",
		`SELECT success, message, transaction_id, new_balance FROM pay_from_wallet($1, $2, $3, $4)`,
		req.OwnerID, req.Amount, req.RefID, req.Description,
	)
	if err != nil {
		return nil, fmt.Errorf("pay from wallet of %s: %w", req.OwnerID, err)
	}
	return &WalletPaymentResult{TransactionID: res.transactionID.String, NewBalance: res.balance.Decimal}, nil
}

func (s *PostgresStore) CreateTransaction(ctx context.Context, nt models.NewTransaction) (*models.Transaction, error) {
	tx, err := resilience.Execute(ctx, s.exec, "create_transaction", func(ctx context.Context) (*models.Transaction, error) {
		row := s.db.QueryRowContext(ctx, `
			INSERT INTO transactions (wallet_id, owner_id, amount, currency, kind, method, status, release_status, reference, shipment_id, metadata)
			VALUES ((SELECT id FROM wallets WHERE owner_id = $1), $1, $2, $3, $4, $5, $6, 'none', $7, $8, $9)
			RETURNING `+transactionColumns,
			nt.OwnerID, nt.Amount, nt.Currency, string(nt.Kind), string(nt.Method), string(nt.Status),
			nt.Reference, nt.ShipmentID, nt.Metadata,
		)
		return scanTransaction(row)
	})
	if err != nil {
		return nil, fmt.Errorf("create transaction %s: %w", nt.Reference, err)
	}
	return tx, nil
}

func (s *PostgresStore) CompleteTransaction(ctx context.Context, c Completion) (*models.Transaction, error) {
	if !c.Status.Terminal() {
		return nil, ErrInvalidStatus
	}

	_, procErr := s.callProcedure(ctx, "complete_transaction",
		`SELECT success, message, NULL::uuid, NULL::numeric FROM complete_transaction($1, $2, $3)`,
		c.Reference, string(c.Status), c.ProviderTransactionID,
	)
	if procErr != nil && !errors.Is(procErr, ErrAlreadyFinalized) {
		return nil, fmt.Errorf("complete transaction %s: %w", c.Reference, procErr)
	}

	tx, err := s.TransactionByReference(ctx, c.Reference)
	if err != nil {
		return nil, err
	}
	return tx, procErr
}

const transactionColumns = `id, wallet_id, owner_id, amount, currency, kind, method, status, release_status, reference, shipment_id, metadata, created_at`

func scanTransaction(row interface{ Scan(dest ...any) error }) (*models.Transaction, error) {
	var (
		tx       models.Transaction
		walletID sql.NullString
		shipment sql.NullString
	)
	err := row.Scan(&tx.ID, &walletID, &tx.OwnerID, &tx.Amount, &tx.Currency, &tx.Kind, &tx.Method,
		&tx.Status, &tx.ReleaseStatus, &tx.Reference, &shipment, &tx.Metadata, &tx.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, classify(err)
	}
	tx.WalletID = walletID.String
	if shipment.Valid {
		tx.ShipmentID = &shipment.String
	}
	return &tx, nil
}

func (s *PostgresStore) TransactionByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	return resilience.Execute(ctx, s.exec, "transaction_by_reference", func(ctx context.Context) (*models.Transaction, error) {
		row := s.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE reference = $1`, reference)
		return scanTransaction(row)
	})
}

func (s *PostgresStore) TransactionByID(ctx context.Context, id string) (*models.Transaction, error) {
	return resilience.Execute(ctx, s.exec, "transaction_by_id", func(ctx context.Context) (*models.Transaction, error) {
		row := s.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id)
		return scanTransaction(row)
	})
}

func (s *PostgresStore) Wallet(ctx context.Context, ownerID string) (*models.Wallet, error) {
	return resilience.Execute(ctx, s.exec, "wallet", func(ctx context.Context) (*models.Wallet, error) {
		var w models.Wallet
		err := s.db.QueryRowContext(ctx, `
			SELECT id, owner_id, balance, currency, created_at, updated_at
			FROM wallets WHERE owner_id = $1`, ownerID).
			Scan(&w.ID, &w.OwnerID, &w.Balance, &w.Currency, &w.CreatedAt, &w.UpdatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrWalletNotFound
		}
		if err != nil {
			return nil, classify(err)
		}
		return &w, nil
	})
}

func (s *PostgresStore) Gateways(ctx context.Context) ([]models.PaymentGateway, error) {
	return resilience.Execute(ctx, s.exec, "gateways", func(ctx context.Context) ([]models.PaymentGateway, error) {
		rows, err := s.db.QueryContext(ctx, `
			SELECT id, provider, name, is_active, is_test_mode, config, supported_currencies, transaction_fee_percent
			FROM payment_gateways ORDER BY provider`)
		if err != nil {
			return nil, classify(err)
		}
		defer rows.Close()

		var gateways []models.PaymentGateway
		for rows.Next() {
			var (
				g   models.PaymentGateway
				raw []byte
			)
			if err := rows.Scan(&g.ID, &g.Provider, &g.Name, &g.IsActive, &g.IsTestMode, &raw,
				pq.Array(&g.SupportedCurrencies), &g.TransactionFeePercent); err != nil {
				return nil, classify(err)
			}
			cfg, err := models.DecodeGatewayConfig(g.Provider, raw)
			if err != nil {
				s.logger.Warn("unreadable gateway config", zap.String("gateway_id", g.ID), zap.Error(err))
			}
			g.Config = cfg
			gateways = append(gateways, g)
		}
		if err := rows.Err(); err != nil {
			return nil, classify(err)
		}
		return gateways, nil
	})
}
