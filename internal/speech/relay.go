package speech

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	AudioContentType = "audio/mpeg"

	maxErrorBody = 8 << 10
	maxTokenBody = 64 << 10

	badRequestHint = "The provider rejected the request. Check that the voice name exists, " +
		"the output format is supported and rate/pitch are within range."
)

// Provider request id headers, checked in order.
var requestIDHeaders = []string{"X-RequestId", "apim-request-id", "x-ms-request-id"}

// Credential is the long-lived provider secret and the region it belongs to.
type Credential struct {
	SubscriptionKey string
	Region          string
}

func (c Credential) Valid() bool {
	return strings.TrimSpace(c.SubscriptionKey) != "" && strings.TrimSpace(c.Region) != ""
}

// TokenStore caches access tokens between requests.
type TokenStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, token string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// AudioResult is a successful synthesis.
type AudioResult struct {
	Audio       []byte
	ContentType string
	RequestID   string
	SynthesisID string
}

// RelayConfig holds construction options for Relay.
type RelayConfig struct {
	Credential Credential
	Endpoints  Endpoints // default: AzureEndpoints()
	UserAgent  string    // default: "speechrelay"
	Timeout    time.Duration
	HTTPClient *http.Client

	// TokenStore and TokenTTL enable token reuse. Both must be set.
	TokenStore TokenStore
	TokenTTL   time.Duration

	Logger *slog.Logger
}

// Relay exchanges the subscription key for a bearer token and forwards
// synthesis requests to the provider. It is safe for concurrent use.
type Relay struct {
	cred       Credential
	endpoints  Endpoints
	userAgent  string
	httpClient *http.Client
	tokens     TokenStore
	tokenTTL   time.Duration
	log        *slog.Logger
}

// NewRelay creates a Relay with defaults applied.
func NewRelay(cfg RelayConfig) *Relay {
	if len(cfg.Endpoints.Token) == 0 || cfg.Endpoints.Synthesis == nil {
		cfg.Endpoints = AzureEndpoints()
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "speechrelay"
	}
	if cfg.HTTPClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		cfg.HTTPClient = &http.Client{Timeout: timeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	r := &Relay{
		cred:       cfg.Credential,
		endpoints:  cfg.Endpoints,
		userAgent:  cfg.UserAgent,
		httpClient: cfg.HTTPClient,
		log:        cfg.Logger.With("component", "speech-relay"),
	}
	if cfg.TokenStore != nil && cfg.TokenTTL > 0 {
		r.tokens = cfg.TokenStore
		r.tokenTTL = cfg.TokenTTL
	}
	return r
}

// Configured reports whether the relay has a usable credential.
func (r *Relay) Configured() bool { return r.cred.Valid() }

// Synthesize obtains a token and submits req to the synthesis endpoint.
func (r *Relay) Synthesize(ctx context.Context, req SynthesisRequest) (*AudioResult, error) {
	if !r.Configured() {
		return nil, &Error{Kind: KindConfigurationMissing, Details: "subscription key and region are required"}
	}

	synthesisID := uuid.NewString()
	log := r.log.With("synthesis_id", synthesisID, "region", r.cred.Region)

	token, cached, err := r.token(ctx, log)
	if err != nil {
		return nil, err
	}

	result, err := r.synthesize(ctx, log, token, req)
	if cached && err != nil && isUnauthorized(err) {
		log.Warn("cached token rejected, fetching a fresh one")
		r.evictToken(ctx, log)
		token, err = r.fetchToken(ctx, log)
		if err != nil {
			return nil, err
		}
		r.storeToken(ctx, log, token)
		result, err = r.synthesize(ctx, log, token, req)
	}
	if err != nil {
		return nil, err
	}

	result.SynthesisID = synthesisID
	log.Info("speech synthesized",
		"voice", req.Voice,
		"format", req.Format,
		"text_chars", len([]rune(req.Text)),
		"audio_bytes", len(result.Audio),
		"request_id", result.RequestID,
	)
	return result, nil
}

func (r *Relay) token(ctx context.Context, log *slog.Logger) (string, bool, error) {
	if r.tokens != nil {
		tok, ok, err := r.tokens.Get(ctx, r.tokenKey())
		if err != nil {
			log.Warn("token store lookup failed", "error", err)
		} else if ok && tok != "" {
			log.Debug("reusing cached token")
			return tok, true, nil
		}
	}

	tok, err := r.fetchToken(ctx, log)
	if err != nil {
		return "", false, err
	}
	r.storeToken(ctx, log, tok)
	return tok, false, nil
}

// fetchToken tries each token endpoint once, in order. There is no backoff.
func (r *Relay) fetchToken(ctx context.Context, log *slog.Logger) (string, error) {
	last := &Error{Kind: KindTokenAcquisitionFailed, Details: "no token endpoints configured"}

	for i, build := range r.endpoints.Token {
		endpoint := build(r.cred.Region)

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, http.NoBody)
		if err != nil {
			last = &Error{Kind: KindTokenAcquisitionFailed, Details: "build token request", Err: err}
			continue
		}
		httpReq.Header.Set("Ocp-Apim-Subscription-Key", r.cred.SubscriptionKey)
		httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		httpReq.Header.Set("User-Agent", r.userAgent)

		resp, err := r.httpClient.Do(httpReq)
		if err != nil {
			log.Warn("token request failed", "candidate", i, "endpoint", endpoint, "error", err)
			last = &Error{Kind: KindTokenAcquisitionFailed, Details: "token request to " + endpoint, Err: err}
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			body := readErrorBody(resp.Body)
			resp.Body.Close()
			log.Warn("token endpoint rejected credentials", "candidate", i, "endpoint", endpoint, "status", resp.StatusCode)
			last = &Error{
				Kind:      KindTokenAcquisitionFailed,
				Status:    resp.StatusCode,
				Details:   body,
				RequestID: requestID(resp.Header),
			}
			continue
		}

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxTokenBody))
		resp.Body.Close()

		tok := strings.TrimSpace(string(body))
		if readErr != nil || tok == "" {
			log.Warn("token endpoint returned no token", "candidate", i, "endpoint", endpoint, "error", readErr)
			last = &Error{Kind: KindTokenAcquisitionFailed, Status: resp.StatusCode, Details: "empty token response", Err: readErr}
			continue
		}

		log.Debug("token acquired", "candidate", i)
		return tok, nil
	}

	return "", last
}

func (r *Relay) synthesize(ctx context.Context, log *slog.Logger, token string, req SynthesisRequest) (*AudioResult, error) {
	endpoint := r.endpoints.Synthesis(r.cred.Region)
	ssml := BuildSSML(req)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(ssml))
	if err != nil {
		return nil, &Error{Kind: KindInternal, Details: "build synthesis request", Err: err}
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", ssmlContentType)
	httpReq.Header.Set("X-Microsoft-OutputFormat", req.Format)
	httpReq.Header.Set("User-Agent", r.userAgent)

	log.Debug("submitting synthesis request",
		"endpoint", endpoint,
		"voice", req.Voice,
		"rate", RatePercent(req.Rate),
		"pitch", PitchPercent(req.Pitch),
		"format", req.Format,
	)

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return nil, &Error{Kind: KindSynthesisFailed, Details: "synthesis request", Err: err}
	}
	defer resp.Body.Close()

	reqID := requestID(resp.Header)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		e := &Error{
			Kind:      KindSynthesisFailed,
			Status:    resp.StatusCode,
			Details:   readErrorBody(resp.Body),
			RequestID: reqID,
		}
		if resp.StatusCode == http.StatusBadRequest {
			e.Hint = badRequestHint
		}
		log.Warn("synthesis rejected", "status", resp.StatusCode, "request_id", reqID)
		return nil, e
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindSynthesisFailed, Status: resp.StatusCode, Details: "read audio", RequestID: reqID, Err: err}
	}
	if len(audio) == 0 {
		log.Warn("provider returned empty audio", "request_id", reqID)
		return nil, &Error{Kind: KindEmptyAudio, Status: resp.StatusCode, Details: "provider returned no audio", RequestID: reqID}
	}

	return &AudioResult{
		Audio:       audio,
		ContentType: AudioContentType,
		RequestID:   reqID,
	}, nil
}

func (r *Relay) storeToken(ctx context.Context, log *slog.Logger, token string) {
	if r.tokens == nil {
		return
	}
	if err := r.tokens.Set(ctx, r.tokenKey(), token, r.tokenTTL); err != nil {
		log.Warn("token store write failed", "error", err)
	}
}

func (r *Relay) evictToken(ctx context.Context, log *slog.Logger) {
	if err := r.tokens.Delete(ctx, r.tokenKey()); err != nil {
		log.Warn("token store delete failed", "error", err)
	}
}

// tokenKey identifies the credential without exposing the key.
func (r *Relay) tokenKey() string {
	sum := sha256.Sum256([]byte(r.cred.SubscriptionKey))
	return fmt.Sprintf("speech:token:%s:%s", r.cred.Region, hex.EncodeToString(sum[:8]))
}

func isUnauthorized(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == KindSynthesisFailed && e.Status == http.StatusUnauthorized
}

func requestID(h http.Header) string {
	for _, name := range requestIDHeaders {
		if v := h.Get(name); v != "" {
			return v
		}
	}
	return ""
}

// readErrorBody returns at most maxErrorBody bytes of an upstream error
// body. A failed read counts as an empty body so it never hides the status.
// A rune split by the limit is dropped.
func readErrorBody(body io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(strings.ToValidUTF8(string(b), ""))
}
