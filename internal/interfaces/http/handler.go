package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmanzanog/portfolio-valuator/internal/application"
	"github.com/jmanzanog/portfolio-valuator/internal/domain"
)

// SnapshotReader exposes the results of the most recently completed cycle.
type SnapshotReader interface {
	LatestSnapshot(ctx context.Context) ([]domain.ValuationResult, domain.PortfolioSummary, error)
	LatestSummary(ctx context.Context) (domain.PortfolioSummary, error)
}

// CycleTrigger starts an out-of-band cycle and reports whether it was accepted.
type CycleTrigger interface {
	Trigger() bool
}

type Handler struct {
	snapshots SnapshotReader
	trigger   CycleTrigger
}

func NewHandler(snapshots SnapshotReader, trigger CycleTrigger) *Handler {
	return &Handler{
		snapshots: snapshots,
		trigger:   trigger,
	}
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type ValuationResponse struct {
	CycleID                 string          `json:"cycle_id"`
	Name                    string          `json:"name"`
	Quantity                int64           `json:"quantity"`
	Currency                domain.Currency `json:"currency"`
	AverageAcquisitionPrice *domain.Decimal `json:"average_acquisition_price,omitempty"`
	CurrentPrice            *domain.Decimal `json:"current_price,omitempty"`
	PurchaseValue           *domain.Decimal `json:"purchase_value,omitempty"`
	SaleValue               *domain.Decimal `json:"sale_value,omitempty"`
	ErrorKind               string          `json:"error_kind,omitempty"`
	Error                   string          `json:"error,omitempty"`
}

type ValuationsResponse struct {
	CycleID    string              `json:"cycle_id"`
	ValuedAt   time.Time           `json:"valued_at"`
	Valuations []ValuationResponse `json:"valuations"`
}

type CycleResponse struct {
	Status string `json:"status"`
}

func toValuationResponse(r domain.ValuationResult) ValuationResponse {
	resp := ValuationResponse{
		CycleID:  r.CycleID,
		Name:     r.Name,
		Quantity: r.Quantity,
		Currency: r.Currency,
	}
	if r.Failed() {
		resp.ErrorKind = string(r.ErrorKind())
		resp.Error = r.Err.Error()
		return resp
	}
	resp.AverageAcquisitionPrice = &r.AverageAcquisitionPrice
	resp.CurrentPrice = &r.CurrentPrice
	resp.PurchaseValue = &r.PurchaseValue
	resp.SaleValue = &r.SaleValue
	return resp
}

func (h *Handler) ListValuations(c *gin.Context) {
	results, summary, err := h.snapshots.LatestSnapshot(c.Request.Context())
	if err != nil {
		h.snapshotError(c, "Failed to read valuations", err)
		return
	}

	resp := ValuationsResponse{
		CycleID:    summary.CycleID,
		ValuedAt:   summary.Timestamp,
		Valuations: make([]ValuationResponse, 0, len(results)),
	}
	for _, r := range results {
		resp.Valuations = append(resp.Valuations, toValuationResponse(r))
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) GetSummary(c *gin.Context) {
	summary, err := h.snapshots.LatestSummary(c.Request.Context())
	if err != nil {
		h.snapshotError(c, "Failed to read summary", err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (h *Handler) TriggerCycle(c *gin.Context) {
	if !h.trigger.Trigger() {
		slog.WarnContext(c.Request.Context(), "Cycle request rejected")
		c.JSON(http.StatusConflict, ErrorResponse{Error: "a cycle is already running or the scheduler is stopped"})
		return
	}

	c.JSON(http.StatusAccepted, CycleResponse{Status: "accepted"})
}

func (h *Handler) snapshotError(c *gin.Context, msg string, err error) {
	if errors.Is(err, application.ErrNoCompletedCycle) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return
	}
	slog.ErrorContext(c.Request.Context(), msg, "error", err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
}
