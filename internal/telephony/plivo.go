package telephony

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// PlivoConfig configures the Plivo REST adapter.
type PlivoConfig struct {
	AuthID    string
	AuthToken string
	// AppID is the Plivo application numbers are linked to on purchase.
	AppID   string
	BaseURL string
	Timeout time.Duration
}

// PlivoProvider talks to the Plivo REST API.
// Numbers are exchanged with Plivo without the leading "+" and returned in E.164.
type PlivoProvider struct {
	rest *resty.Client
	cfg  PlivoConfig
	log  *slog.Logger
}

func NewPlivoProvider(cfg PlivoConfig, log *slog.Logger) (*PlivoProvider, error) {
	if cfg.AuthID == "" || cfg.AuthToken == "" {
		return nil, errors.New("telephony: plivo auth id and token are required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.plivo.com"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetBasicAuth(cfg.AuthID, cfg.AuthToken).
		SetRetryCount(2).
		SetRetryWaitTime(200*time.Millisecond).
		SetRetryMaxWaitTime(time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetPathParam("auth_id", cfg.AuthID).
		// Only idempotent reads are retried; a retried call creation would dial twice.
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if r == nil || r.Request == nil || r.Request.Method != http.MethodGet {
				return false
			}
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})

	return &PlivoProvider{rest: client, cfg: cfg, log: log.With("provider", "plivo")}, nil
}

func (p *PlivoProvider) Name() string { return "plivo" }

func (p *PlivoProvider) HealthCheck(ctx context.Context) error {
	resp, err := p.rest.R().SetContext(ctx).Get("/v1/Account/{auth_id}/")
	return p.check("health", resp, err)
}

type plivoError struct {
	APIID string `json:"api_id"`
	Error string `json:"error"`
}

type plivoListing struct {
	Number            string  `json:"number"`
	City              string  `json:"city"`
	Country           string  `json:"country"`
	Region            string  `json:"region"`
	Type              string  `json:"type"`
	SubType           string  `json:"sub_type"`
	SetupRate         string  `json:"setup_rate"`
	MonthlyRentalRate string  `json:"monthly_rental_rate"`
	VoiceEnabled      bool    `json:"voice_enabled"`
	SMSEnabled        bool    `json:"sms_enabled"`
	Restriction       *string `json:"restriction"`
	RestrictionText   *string `json:"restriction_text"`
}

type plivoSearchResponse struct {
	Objects []plivoListing `json:"objects"`
}

func (p *PlivoProvider) SearchNumbers(ctx context.Context, req SearchRequest) ([]Listing, error) {
	if req.CountryISO == "" {
		return nil, fmt.Errorf("%w: country_iso required", ErrProviderRejected)
	}
	q := map[string]string{"country_iso": strings.ToUpper(req.CountryISO)}
	if req.Type != "" {
		q["type"] = plivoType(req.Type)
	}
	if req.Pattern != "" {
		q["pattern"] = req.Pattern
	}
	if req.Region != "" {
		q["region"] = req.Region
	}
	if req.Services != "" {
		q["services"] = req.Services
	}
	if req.Limit > 0 {
		q["limit"] = strconv.Itoa(req.Limit)
	}

	var out plivoSearchResponse
	resp, err := p.rest.R().
		SetContext(ctx).
		SetQueryParams(q).
		SetResult(&out).
		SetError(&plivoError{}).
		Get("/v1/Account/{auth_id}/PhoneNumber/")
	if err := p.check("search", resp, err); err != nil {
		return nil, err
	}

	listings := make([]Listing, 0, len(out.Objects))
	for _, o := range out.Objects {
		l := Listing{
			Number:       toE164(o.Number),
			Type:         fromPlivoType(o.Type, o.SubType),
			Country:      o.Country,
			Region:       o.Region,
			City:         o.City,
			MonthlyCost:  parseRate(o.MonthlyRentalRate),
			SetupCost:    parseRate(o.SetupRate),
			VoiceEnabled: o.VoiceEnabled,
			SMSEnabled:   o.SMSEnabled,
		}
		if o.Restriction != nil && *o.Restriction != "" {
			l.ComplianceRequired = true
			l.Restriction = *o.Restriction
			if o.RestrictionText != nil && *o.RestrictionText != "" {
				l.Restriction = *o.RestrictionText
			}
		}
		listings = append(listings, l)
	}
	return listings, nil
}

type plivoBuyResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
	Numbers []struct {
		Number string `json:"number"`
		Status string `json:"status"`
	} `json:"numbers"`
}

type plivoNumberDetail struct {
	Number            string `json:"number"`
	NumberType        string `json:"number_type"`
	Country           string `json:"country"`
	MonthlyRentalRate string `json:"monthly_rental_rate"`
	VoiceEnabled      bool   `json:"voice_enabled"`
	SMSEnabled        bool   `json:"sms_enabled"`
}

func (p *PlivoProvider) BuyNumber(ctx context.Context, req BuyNumberRequest) (BuyNumberResult, error) {
	num := fromE164(req.Number)
	if num == "" {
		return BuyNumberResult{}, fmt.Errorf("%w: number required", ErrProviderRejected)
	}

	body := map[string]string{}
	if p.cfg.AppID != "" {
		body["app_id"] = p.cfg.AppID
	}

	var out plivoBuyResponse
	resp, err := p.rest.R().
		SetContext(ctx).
		SetPathParam("number", num).
		SetBody(body).
		SetResult(&out).
		SetError(&plivoError{}).
		Post("/v1/Account/{auth_id}/PhoneNumber/{number}/")
	if err := p.check("buy", resp, err); err != nil {
		return BuyNumberResult{}, err
	}

	res := BuyNumberResult{
		Number:           toE164(num),
		ProviderNumberID: num,
		Type:             NumberTypeLocal,
		VoiceEnabled:     true,
		Pending:          strings.EqualFold(out.Status, "pending"),
	}
	for _, n := range out.Numbers {
		if strings.EqualFold(n.Status, "pending") {
			res.Pending = true
		}
	}

	// Enrich with the rented number's attributes; purchase already succeeded, so failures only log.
	var d plivoNumberDetail
	dresp, derr := p.rest.R().
		SetContext(ctx).
		SetPathParam("number", num).
		SetResult(&d).
		SetError(&plivoError{}).
		Get("/v1/Account/{auth_id}/Number/{number}/")
	if err := p.check("number_detail", dresp, derr); err != nil {
		p.log.Warn("number detail lookup failed after purchase", "number", res.Number, "err", err)
		return res, nil
	}
	res.Type = fromPlivoType(d.NumberType, "")
	res.Country = d.Country
	res.MonthlyCost = parseRate(d.MonthlyRentalRate)
	res.VoiceEnabled = d.VoiceEnabled
	res.SMSEnabled = d.SMSEnabled
	return res, nil
}

func (p *PlivoProvider) ReleaseNumber(ctx context.Context, req ReleaseNumberRequest) error {
	num := req.ProviderNumberID
	if num == "" {
		num = fromE164(req.Number)
	}
	if num == "" {
		return fmt.Errorf("%w: number required", ErrProviderRejected)
	}
	resp, err := p.rest.R().
		SetContext(ctx).
		SetPathParam("number", num).
		SetError(&plivoError{}).
		Delete("/v1/Account/{auth_id}/Number/{number}/")
	return p.check("release", resp, err)
}

type plivoCallResponse struct {
	Message     string          `json:"message"`
	RequestUUID json.RawMessage `json:"request_uuid"`
}

func (p *PlivoProvider) CreateCall(ctx context.Context, req CreateCallRequest) (CreateCallResult, error) {
	if req.From == "" || len(req.To) == 0 || req.AnswerURL == "" {
		return CreateCallResult{}, fmt.Errorf("%w: from, to and answer_url required", ErrProviderRejected)
	}
	to := make([]string, 0, len(req.To))
	for _, n := range req.To {
		to = append(to, fromE164(n))
	}
	body := map[string]string{
		"from":          fromE164(req.From),
		"to":            strings.Join(to, "<"),
		"answer_url":    req.AnswerURL,
		"answer_method": http.MethodPost,
	}
	if req.HangupURL != "" {
		body["hangup_url"] = req.HangupURL
		body["hangup_method"] = http.MethodPost
	}

	var out plivoCallResponse
	resp, err := p.rest.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		SetError(&plivoError{}).
		Post("/v1/Account/{auth_id}/Call/")
	if err := p.check("create_call", resp, err); err != nil {
		return CreateCallResult{}, err
	}

	ids, err := decodeRequestUUIDs(out.RequestUUID)
	if err != nil {
		return CreateCallResult{}, fmt.Errorf("%w: create_call: %v", ErrProviderRejected, err)
	}
	return CreateCallResult{CallIDs: ids}, nil
}

// Speak is not offered as a standalone synthesis API by Plivo; speech is rendered in-call via XML.
func (p *PlivoProvider) Speak(ctx context.Context, req SpeakRequest) ([]byte, error) {
	return nil, ErrUnsupported
}

// decodeRequestUUIDs accepts both the single-string and list forms Plivo returns.
func decodeRequestUUIDs(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 {
		return nil, errors.New("missing request_uuid")
	}
	var one string
	if err := json.Unmarshal(raw, &one); err == nil {
		if one == "" {
			return nil, errors.New("empty request_uuid")
		}
		return []string{one}, nil
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err != nil {
		return nil, fmt.Errorf("decode request_uuid: %w", err)
	}
	if len(many) == 0 {
		return nil, errors.New("empty request_uuid")
	}
	return many, nil
}

func (p *PlivoProvider) check(op string, resp *resty.Response, err error) error {
	if err != nil {
		if isTimeout(err) {
			return fmt.Errorf("%w: %s: %v", ErrProviderTimeout, op, err)
		}
		return fmt.Errorf("%w: %s: %v", ErrProviderRejected, op, err)
	}
	if resp.IsError() {
		msg := http.StatusText(resp.StatusCode())
		if e, ok := resp.Error().(*plivoError); ok && e != nil && e.Error != "" {
			msg = e.Error
		}
		p.log.Warn("plivo request failed", "op", op, "status", resp.StatusCode(), "msg", msg)
		return fmt.Errorf("%w: %s: status %d: %s", ErrProviderRejected, op, resp.StatusCode(), msg)
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func toE164(n string) string {
	n = strings.TrimSpace(n)
	if n == "" || strings.HasPrefix(n, "+") {
		return n
	}
	return "+" + n
}

func fromE164(n string) string {
	return strings.TrimPrefix(strings.TrimSpace(n), "+")
}

func parseRate(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}

func plivoType(t NumberType) string {
	switch t {
	case NumberTypeTollFree:
		return "tollfree"
	case NumberTypeMobile:
		return "mobile"
	case NumberTypeFixed:
		return "fixed"
	default:
		return "local"
	}
}

func fromPlivoType(t, sub string) NumberType {
	switch strings.ToLower(t) {
	case "tollfree", "toll_free", "toll-free":
		return NumberTypeTollFree
	case "mobile":
		return NumberTypeMobile
	case "fixed":
		if strings.EqualFold(sub, "local") {
			return NumberTypeLocal
		}
		return NumberTypeFixed
	default:
		return NumberTypeLocal
	}
}
