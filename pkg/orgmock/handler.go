package orgmock

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/beevik/etree"
	"github.com/google/uuid"

	"github.com/xrmkit/xrmsoap/internal/storage"
	"github.com/xrmkit/xrmsoap/pkg/logging"
	"github.com/xrmkit/xrmsoap/pkg/soap"
)

// MaxRecordings bounds the number of requests a Handler remembers.
const MaxRecordings = 1000

const maxBodySize = 10 << 20 // 10MB

// Recording is one handled request.
type Recording struct {
	Timestamp      time.Time     `json:"timestamp"`
	RequestName    string        `json:"requestName"`
	SOAPAction     string        `json:"soapAction"`
	RequestBody    string        `json:"requestBody"`
	ResponseBody   string        `json:"responseBody"`
	ResponseStatus int           `json:"responseStatus"`
	Duration       time.Duration `json:"duration"`
	HasFault       bool          `json:"hasFault"`
	FaultMessage   string        `json:"faultMessage,omitempty"`
}

// Handler handles Execute requests.
type Handler struct {
	config   *Config
	identity Identity
	state    *stateful
	logger   *slog.Logger
	store    storage.RecordStore

	recordingMu sync.RWMutex
	recordings  []Recording
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logging.Component(l, "orgmock")
	}
}

// WithStore replaces the in-memory record store used in stateful mode.
func WithStore(s storage.RecordStore) Option {
	return func(h *Handler) {
		h.store = s
	}
}

// New creates a handler for cfg. A nil cfg is an empty stateless
// configuration.
func New(cfg *Config, opts ...Option) (*Handler, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	h := &Handler{
		config:   cfg,
		identity: cfg.Identity.withDefaults(),
		logger:   logging.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}

	if cfg.Stateful {
		if h.store == nil {
			h.store = storage.NewInMemoryRecordStore()
		}
		state, err := newStateful(h.store, cfg, h.identity)
		if err != nil {
			return nil, err
		}
		h.state = state
	}
	return h, nil
}

// Identity returns the ids WhoAmI answers with.
func (h *Handler) Identity() Identity {
	return h.identity
}

// Store returns the record store, or nil when the handler is stateless.
func (h *Handler) Store() storage.RecordStore {
	return h.store
}

// ServeHTTP implements the http.Handler interface.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()

	// Only accept POST for SOAP operations
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		h.writeFault(w, r, startTime, "", string(body), &soap.Fault{
			Code:    "s:Client",
			Message: "Failed to read request body",
		})
		return
	}
	defer func() { _ = r.Body.Close() }()

	doc, err := parseEnvelope(body)
	if err != nil {
		h.writeFault(w, r, startTime, "", string(body), &soap.Fault{
			Code:    "s:Client",
			Message: "Failed to parse SOAP envelope: " + err.Error(),
		})
		return
	}

	name := strings.TrimSpace(soap.SelectSingleNodeText(doc, "//a:RequestName"))
	if name == "" {
		h.writeFault(w, r, startTime, "", string(body), &soap.Fault{
			Code:    "s:Client",
			Message: "Failed to determine request: no RequestName",
		})
		return
	}

	if op := h.matchOperation(name, doc, body); op != nil {
		if op.Delay != "" {
			if delay, err := parseDuration(op.Delay); err == nil {
				select {
				case <-time.After(delay):
				case <-r.Context().Done():
					return
				}
			}
		}
		if op.Fault != nil {
			h.writeFault(w, r, startTime, name, string(body), op.Fault)
			return
		}
		h.writeResponse(w, r, startTime, name, string(body), processTemplate(op.Response, doc))
		return
	}

	if h.state != nil {
		resp, fault := h.state.execute(name, doc)
		if fault != nil {
			h.writeFault(w, r, startTime, name, string(body), fault)
			return
		}
		h.writeResponse(w, r, startTime, name, string(body), resp)
		return
	}

	h.writeFault(w, r, startTime, name, string(body), &soap.Fault{
		Code:    "s:Client",
		Message: "Unknown request: " + name,
	})
}

// parseEnvelope parses a SOAP envelope from the request body.
func parseEnvelope(body []byte) (*etree.Document, error) {
	doc, err := soap.ParseResponse(body)
	if err != nil {
		return nil, fmt.Errorf("invalid XML: %w", err)
	}

	root := doc.Root()
	if root == nil {
		return nil, errors.New("empty document")
	}
	if root.Tag != "Envelope" {
		return nil, fmt.Errorf("root element must be Envelope, got %s", root.Tag)
	}
	return doc, nil
}

// matchOperation finds the first configured operation for the request.
func (h *Handler) matchOperation(name string, doc *etree.Document, body []byte) *Operation {
	for i := range h.config.Operations {
		op := &h.config.Operations[i]
		if op.Request != "*" && !strings.EqualFold(op.Request, name) {
			continue
		}
		if op.Match != nil && !op.Match.matches(doc, body) {
			continue
		}
		return op
	}
	return nil
}

func (m *Match) matches(doc *etree.Document, body []byte) bool {
	for path, want := range m.XPath {
		if strings.TrimSpace(soap.SelectSingleNodeText(doc, path)) != want {
			return false
		}
	}
	for _, s := range m.Contains {
		if !strings.Contains(string(body), s) {
			return false
		}
	}
	return true
}

// templateVarRegex matches {{xpath:/path}}, {{uuid}}, {{now}} and
// {{timestamp}}.
var templateVarRegex = regexp.MustCompile(`\{\{\s*([^}]+?)\s*\}\}`)

func processTemplate(template string, doc *etree.Document) string {
	return templateVarRegex.ReplaceAllStringFunc(template, func(match string) string {
		submatch := templateVarRegex.FindStringSubmatch(match)
		if len(submatch) < 2 {
			return match
		}
		ref := submatch[1]
		switch {
		case strings.HasPrefix(ref, "xpath:"):
			return soap.Encode(soap.SelectSingleNodeText(doc, strings.TrimPrefix(ref, "xpath:")))
		case ref == "uuid":
			return uuid.NewString()
		case ref == "now":
			return time.Now().UTC().Format(time.RFC3339)
		case ref == "timestamp":
			return strconv.FormatInt(time.Now().Unix(), 10)
		default:
			return match
		}
	})
}

// writeFault writes a SOAP 1.1 fault and records the exchange.
func (h *Handler) writeFault(w http.ResponseWriter, r *http.Request, startTime time.Time, name, requestBody string, fault *soap.Fault) {
	faultXML := buildFault(fault)

	w.Header().Set("Content-Type", soap.SOAP11ContentType)
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write([]byte(faultXML))

	h.record(r, startTime, Recording{
		RequestName:    name,
		RequestBody:    requestBody,
		ResponseBody:   faultXML,
		ResponseStatus: http.StatusInternalServerError,
		HasFault:       true,
		FaultMessage:   fault.Message,
	})
}

// buildFault builds a SOAP 1.1 fault. A detail is sent as an
// OrganizationServiceFault message.
func buildFault(fault *soap.Fault) string {
	code := fault.Code
	if code == "" {
		code = "s:Client"
	}

	w := soap.NewWriter()
	w.Ident(`<?xml version="1.0" encoding="UTF-8"?>`)
	w.Open("s:Envelope", soap.Xmlns("s", soap.SOAP11Namespace))
	w.Open("s:Body")
	w.Open("s:Fault")
	w.Element("faultcode", code)
	w.Element("faultstring", fault.Message)
	if fault.Detail != "" {
		w.Open("detail")
		w.Open("OrganizationServiceFault", soap.Attr{Name: "xmlns", Value: soap.NSContracts})
		w.Element("Message", fault.Detail)
		w.Close("OrganizationServiceFault")
		w.Close("detail")
	}
	w.Close("s:Fault")
	w.Close("s:Body")
	w.Close("s:Envelope")
	return w.String()
}

// writeResponse wraps body in a SOAP 1.1 envelope and records the exchange.
func (h *Handler) writeResponse(w http.ResponseWriter, r *http.Request, startTime time.Time, name, requestBody, body string) {
	var response strings.Builder
	response.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	response.WriteString(`<s:Envelope xmlns:s="` + soap.SOAP11Namespace + `">`)
	response.WriteString(`<s:Body>`)
	response.WriteString(body)
	response.WriteString(`</s:Body>`)
	response.WriteString(`</s:Envelope>`)

	w.Header().Set("Content-Type", soap.SOAP11ContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, response.String())

	h.record(r, startTime, Recording{
		RequestName:    name,
		RequestBody:    requestBody,
		ResponseBody:   response.String(),
		ResponseStatus: http.StatusOK,
	})
}

// writeError writes an HTTP error response.
func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(message))
}

func (h *Handler) record(r *http.Request, startTime time.Time, rec Recording) {
	rec.Timestamp = startTime
	rec.Duration = time.Since(startTime)
	rec.SOAPAction = strings.Trim(r.Header.Get("SOAPAction"), `"`)

	h.logger.Debug("request handled",
		"request", rec.RequestName,
		"status", rec.ResponseStatus,
		"fault", rec.FaultMessage,
		"duration", rec.Duration,
		"body", logging.TruncateBody(rec.RequestBody, 0))

	rec.RequestBody = logging.TruncateBody(rec.RequestBody, 0)
	rec.ResponseBody = logging.TruncateBody(rec.ResponseBody, 0)

	h.recordingMu.Lock()
	defer h.recordingMu.Unlock()
	if len(h.recordings) >= MaxRecordings {
		h.recordings = h.recordings[1:]
	}
	h.recordings = append(h.recordings, rec)
}

// Recordings returns the handled requests, oldest first.
func (h *Handler) Recordings() []Recording {
	h.recordingMu.RLock()
	defer h.recordingMu.RUnlock()
	out := make([]Recording, len(h.recordings))
	copy(out, h.recordings)
	return out
}

// ClearRecordings forgets all handled requests.
func (h *Handler) ClearRecordings() {
	h.recordingMu.Lock()
	defer h.recordingMu.Unlock()
	h.recordings = nil
}
