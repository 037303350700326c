package routehandlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/coreybb/consumo/ingestion"
	"github.com/coreybb/consumo/models"
	"github.com/coreybb/consumo/webutil"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

const (
	msgRequiredFields = "Fields 'date' and 'device' are required"

	queryParamDate   = "data"
	queryParamDevice = "aparelho"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Ingester runs the write path for one (date, device) pair.
type Ingester interface {
	Ingest(ctx context.Context, date, device string) (*ingestion.Result, error)
}

// ReadingFinder is the read side of the persistence gateway.
type ReadingFinder interface {
	Find(ctx context.Context, filter models.ReadingFilter, limit int) ([]models.Reading, error)
	Ping(ctx context.Context) error
}

// Holds dependencies for consumption route handlers.
type ConsumptionHandler struct {
	Ingester Ingester
	Store    ReadingFinder
}

// Creates a new ConsumptionHandler.
func NewConsumptionHandler(ingester Ingester, store ReadingFinder) *ConsumptionHandler {
	return &ConsumptionHandler{Ingester: ingester, Store: store}
}

// HandleIngest generates and stores a day of readings and echoes them back.
func (h *ConsumptionHandler) HandleIngest(w http.ResponseWriter, r *http.Request) error {
	defer r.Body.Close()

	var req models.IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return webutil.ErrBadRequestWrap("Invalid request payload", err)
	}
	if err := validate.Struct(req); err != nil {
		return webutil.ErrBadRequestWrap(msgRequiredFields, err)
	}

	result, err := h.Ingester.Ingest(r.Context(), req.Date, req.Device)
	if err != nil {
		return webutil.ErrInternalServerWrap("ingest readings", err)
	}

	w.Header().Set(webutil.HeaderBatchID, result.BatchID)
	webutil.RespondWithJSON(w, http.StatusCreated, result.Readings)
	return nil
}

// HandleSearch returns stored readings filtered by the optional "data" and
// "aparelho" query parameters.
func (h *ConsumptionHandler) HandleSearch(w http.ResponseWriter, r *http.Request) error {
	query := r.URL.Query()
	filter := models.ReadingFilter{
		Date:   strings.TrimSpace(query.Get(queryParamDate)),
		Device: strings.TrimSpace(query.Get(queryParamDevice)),
	}

	readings, err := h.Store.Find(r.Context(), filter, models.MaxQueryResults)
	if err != nil {
		return fmt.Errorf("failed to search readings (date=%q, device=%q): %w", filter.Date, filter.Device, err)
	}
	if readings == nil {
		readings = []models.Reading{}
	}
	webutil.RespondWithJSON(w, http.StatusOK, readings)
	return nil
}

// HandleReady reports whether the backing store answers a ping.
func (h *ConsumptionHandler) HandleReady(w http.ResponseWriter, r *http.Request) error {
	if err := h.Store.Ping(r.Context()); err != nil {
		return webutil.ErrServiceUnavailableWrap("Store unavailable", err)
	}
	w.Header().Set(webutil.HeaderContentType, webutil.ContentTypeTextPlainUTF8)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
	return nil
}
