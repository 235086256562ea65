package server

import (
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/studioledger/internal/cache"
	"github.com/smallbiznis/studioledger/internal/eventmerge"
	ledgerdomain "github.com/smallbiznis/studioledger/internal/ledger/domain"
	"github.com/smallbiznis/studioledger/internal/providers/pdf"
	records "github.com/smallbiznis/studioledger/internal/records/domain"
	"github.com/smallbiznis/studioledger/pkg/db/pagination"
	"go.uber.org/zap"
)

const (
	headerRunID      = "X-Run-ID"
	headerGeneration = "X-Run-Generation"
)

type listClientLedgersRequest struct {
	pagination.Pagination
	Status string `form:"status"`
}

type listClientLedgersResponse struct {
	Data     []ledgerdomain.ClientLedger `json:"data"`
	PageInfo pagination.PageInfo         `json:"page_info"`
}

type upcomingEventsResponse struct {
	Data []eventmerge.UpcomingEvent `json:"data"`
}

func (s *Server) GetDashboard(c *gin.Context) {
	entry, err := s.results.Latest(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	setRunHeaders(c, entry)
	c.JSON(http.StatusOK, entry.Result)
}

func (s *Server) RefreshDashboard(c *gin.Context) {
	entry, err := s.results.Refresh(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	setRunHeaders(c, entry)
	c.JSON(http.StatusOK, entry.Result)
}

func (s *Server) ListUpcomingEvents(c *gin.Context) {
	entry, err := s.results.Latest(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	events := entry.Result.UpcomingEvents
	if events == nil {
		events = []eventmerge.UpcomingEvent{}
	}
	setRunHeaders(c, entry)
	c.JSON(http.StatusOK, upcomingEventsResponse{Data: events})
}

func (s *Server) ListClientLedgers(c *gin.Context) {
	var req listClientLedgersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, newValidationError("page_size", "invalid_page_size", "page_size must be between 1 and 250"))
		return
	}

	var status records.ClientPaymentStatus
	if raw := strings.TrimSpace(req.Status); raw != "" {
		parsed, ok := parseClientStatus(raw)
		if !ok {
			AbortWithError(c, newValidationError("status", "invalid_status", "unknown payment status"))
			return
		}
		status = parsed
	}

	entry, err := s.results.Latest(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ledgers := make([]ledgerdomain.ClientLedger, 0, len(entry.Result.ClientLedgers))
	for _, l := range entry.Result.ClientLedgers {
		if status != "" && l.Status != status {
			continue
		}
		ledgers = append(ledgers, l)
	}
	sort.Slice(ledgers, func(i, j int) bool { return ledgers[i].LeadID < ledgers[j].LeadID })

	page, info, err := pagination.Page(ledgers, req.Pagination, func(l ledgerdomain.ClientLedger) string { return l.LeadID })
	if err != nil {
		AbortWithError(c, err)
		return
	}

	setRunHeaders(c, entry)
	c.JSON(http.StatusOK, listClientLedgersResponse{Data: page, PageInfo: info})
}

func (s *Server) GetClientLedger(c *gin.Context) {
	entry, ledger, err := s.ledgerFor(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	setRunHeaders(c, entry)
	c.JSON(http.StatusOK, ledger)
}

func (s *Server) GetClientStatement(c *gin.Context) {
	entry, ledger, err := s.ledgerFor(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	key := ledger.LeadID + ":" + entry.RunID
	body, ok := s.statements.Get(key)
	if !ok {
		settings := s.settings.Get()
		data := pdf.StatementData{
			StudioName:   s.cfg.StudioName,
			CurrencyCode: settings.Currency.Code,
			Location:     settings.Location(),
			GeneratedAt:  entry.Result.GeneratedAt,
			Ledger:       ledger,
		}
		if len(settings.Currency.Symbols) > 0 {
			data.CurrencySymbol = settings.Currency.Symbols[0]
		}

		reader, err := s.pdf.GenerateStatement(c.Request.Context(), data)
		if err != nil {
			s.log.Error("failed to render statement", zap.String("lead_id", ledger.LeadID), zap.Error(err))
			AbortWithError(c, ErrInternal)
			return
		}
		body, err = io.ReadAll(reader)
		if err != nil {
			AbortWithError(c, ErrInternal)
			return
		}
		s.statements.Set(key, body, settings.CacheTTL)
	}

	setRunHeaders(c, entry)
	c.Header("Content-Disposition", `attachment; filename="`+statementFilename(ledger)+`"`)
	c.Data(http.StatusOK, "application/pdf", body)
}

func (s *Server) ledgerFor(c *gin.Context) (cache.Entry, ledgerdomain.ClientLedger, error) {
	leadID := strings.TrimSpace(c.Param("id"))
	if leadID == "" {
		return cache.Entry{}, ledgerdomain.ClientLedger{}, ErrInvalidRequest
	}

	entry, err := s.results.Latest(c.Request.Context())
	if err != nil {
		return cache.Entry{}, ledgerdomain.ClientLedger{}, err
	}
	ledger, ok := entry.Result.ClientLedgers[leadID]
	if !ok {
		return entry, ledgerdomain.ClientLedger{}, ledgerdomain.ErrLedgerNotFound
	}
	return entry, ledger, nil
}

func setRunHeaders(c *gin.Context, entry cache.Entry) {
	if entry.RunID != "" {
		c.Header(headerRunID, entry.RunID)
	}
	c.Header(headerGeneration, strconv.FormatUint(entry.Generation, 10))
}

func parseClientStatus(raw string) (records.ClientPaymentStatus, bool) {
	for _, status := range []records.ClientPaymentStatus{
		records.ClientPaymentFullyPaid,
		records.ClientPaymentPartialPaid,
		records.ClientPaymentPending,
		records.ClientPaymentOverdue,
	} {
		if strings.EqualFold(string(status), raw) || slug.Make(string(status)) == raw {
			return status, true
		}
	}
	return "", false
}

func statementFilename(l ledgerdomain.ClientLedger) string {
	name := slug.Make(l.ClientName)
	if name == "" {
		name = slug.Make(l.LeadID)
	}
	if name == "" {
		name = "client"
	}
	return "statement-" + name + ".pdf"
}

