package dispatch

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"autotrader/internal/models"
)

// Recorder is the slice of the repository the executor needs for the
// dispatch log.
type Recorder interface {
	InsertDispatch(ctx context.Context, item *models.DispatchRecord) error
	SettleDispatch(ctx context.Context, id string, status string, errMsg string, txRef string, settledAt time.Time) error
}

// PaperExecutor acknowledges every request with a simulated fill after a
// short delay. It owns the dispatch-log writes so the evaluation loop stays
// free of blocking I/O; real on-chain execution would slot in behind the same
// Dispatcher interface.
type PaperExecutor struct {
	Repo      Recorder
	Logger    *zap.Logger
	FillDelay time.Duration

	results chan<- Outcome
}

func NewPaperExecutor(repo Recorder, logger *zap.Logger, fillDelay time.Duration, results chan<- Outcome) *PaperExecutor {
	if fillDelay <= 0 {
		fillDelay = 50 * time.Millisecond
	}
	return &PaperExecutor{
		Repo:      repo,
		Logger:    logger,
		FillDelay: fillDelay,
		results:   results,
	}
}

func (x *PaperExecutor) Dispatch(ctx context.Context, req Request) {
	if x == nil {
		return
	}
	go x.execute(ctx, req)
}

func (x *PaperExecutor) execute(ctx context.Context, req Request) {
	record := &models.DispatchRecord{
		ID:          req.ID,
		ProfileID:   req.ProfileID,
		Family:      string(req.Family),
		ActionID:    req.ActionID,
		Mint:        req.Mint,
		Direction:   string(req.Direction),
		AmountSOL:   req.AmountSOL,
		SlippageBps: req.SlippageBps,
		Priority:    req.Priority,
		Status:      models.DispatchStatusSent,
		RequestedAt: req.RequestedAt,
	}
	if len(req.TargetWallets) > 0 {
		if raw, err := json.Marshal(req.TargetWallets); err == nil {
			record.TargetWallets = datatypes.JSON(raw)
		}
	}
	if x.Repo != nil {
		if err := x.Repo.InsertDispatch(ctx, record); err != nil && x.Logger != nil {
			x.Logger.Warn("dispatch log insert failed", zap.String("request_id", req.ID), zap.Error(err))
		}
	}

	timer := time.NewTimer(x.FillDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		x.settle(context.Background(), req, Outcome{
			RequestID: req.ID,
			ProfileID: req.ProfileID,
			Family:    req.Family,
			Success:   false,
			Error:     "executor shutting down",
			SettledAt: time.Now().UTC(),
		})
		return
	case <-timer.C:
	}

	out := Outcome{
		RequestID: req.ID,
		ProfileID: req.ProfileID,
		Family:    req.Family,
		SettledAt: time.Now().UTC(),
	}
	if req.AmountSOL.LessThanOrEqual(decimal.Zero) {
		out.Error = "non-positive amount"
	} else {
		out.Success = true
		out.TxRef = "paper-" + uuid.NewString()
	}
	x.settle(ctx, req, out)
}

func (x *PaperExecutor) settle(ctx context.Context, req Request, out Outcome) {
	status := models.DispatchStatusFailed
	if out.Success {
		status = models.DispatchStatusFilled
	}
	if x.Repo != nil {
		if err := x.Repo.SettleDispatch(ctx, req.ID, status, out.Error, out.TxRef, out.SettledAt); err != nil && x.Logger != nil {
			x.Logger.Warn("dispatch log settle failed", zap.String("request_id", req.ID), zap.Error(err))
		}
	}
	if x.Logger != nil {
		x.Logger.Info("paper dispatch settled",
			zap.String("request_id", req.ID),
			zap.String("profile_id", req.ProfileID),
			zap.String("direction", string(req.Direction)),
			zap.String("amount_sol", req.AmountSOL.String()),
			zap.Bool("success", out.Success),
		)
	}
	if x.results != nil {
		select {
		case x.results <- out:
		case <-ctx.Done():
		}
	}
}
