package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/hrthis/hrthis-backend/api/responses"
	pkgerrors "github.com/hrthis/hrthis-backend/pkg/errors"
	"github.com/hrthis/hrthis-backend/pkg/logger"
	pkgredis "github.com/hrthis/hrthis-backend/pkg/redis"
)

const (
	// DefaultIdempotencyTTL applies when the caller passes a non-positive TTL.
	DefaultIdempotencyTTL = 24 * time.Hour

	// inFlightTTL bounds how long a crashed request can hold its key.
	inFlightTTL = time.Minute

	idempotencyHeader = "Idempotency-Key"
	replayedHeader    = "Idempotent-Replayed"
	maxKeyLength      = 128
)

// Coin-moving POSTs; each needs an Idempotency-Key.
var guardedRoutes = []*regexp.Regexp{
	regexp.MustCompile(`^/api/v1/benefits/[^/]+/purchase$`),
	regexp.MustCompile(`^/api/admin/v1/coins/grants$`),
	regexp.MustCompile(`^/api/admin/v1/coins/rule-grants$`),
}

func requiresIdempotency(method, path string) bool {
	if method != http.MethodPost {
		return false
	}
	for _, re := range guardedRoutes {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

// replay is what Redis holds under a key. Done is false while the first
// request is still running.
type replay struct {
	Fingerprint string `json:"fp"`
	Done        bool   `json:"done"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"ct,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

// Idempotency makes coin-moving POSTs safe to retry. The first request under
// a key reserves it, runs, and stores its response; retries with the same
// body get that response back. A retry that arrives while the first is still
// running is refused with a retryable conflict. 5xx responses free the key.
func Idempotency(store pkgredis.IdempotencyStore, ttl time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	fail := func(w http.ResponseWriter, r *http.Request, err error) {
		responses.WriteError(r.Context(), logg, w, err)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if store == nil || !requiresIdempotency(r.Method, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			clientKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			switch {
			case clientKey == "":
				fail(w, r, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
				return
			case len(clientKey) > maxKeyLength:
				fail(w, r, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key too long"))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				fail(w, r, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			ctx := r.Context()
			key := store.IdempotencyKey(subjectOf(ctx)+"|"+r.URL.Path, clientKey)
			fp := fingerprint(body)

			pending, _ := json.Marshal(replay{Fingerprint: fp})
			reserved, err := store.SetNX(ctx, key, string(pending), inFlightTTL)
			if err != nil {
				fail(w, r, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve idempotency key"))
				return
			}
			if !reserved {
				answerRetry(ctx, w, r, store, key, fp, fail)
				return
			}

			capture := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(capture, r)

			// the client may already be gone; the bookkeeping must still land
			bg := context.WithoutCancel(ctx)
			status := capture.statusOrOK()
			if status >= http.StatusInternalServerError {
				if err := store.Del(bg, key); err != nil && logg != nil {
					logg.Error(bg, "free idempotency key after server error", err)
				}
				return
			}
			done, _ := json.Marshal(replay{
				Fingerprint: fp,
				Done:        true,
				Status:      status,
				ContentType: capture.Header().Get("Content-Type"),
				Body:        capture.body.Bytes(),
			})
			if err := store.Set(bg, key, string(done), ttl); err != nil && logg != nil {
				logg.Error(bg, "store idempotent response", err)
			}
		})
	}
}

func answerRetry(ctx context.Context, w http.ResponseWriter, r *http.Request, store pkgredis.IdempotencyStore, key, fp string, fail func(http.ResponseWriter, *http.Request, error)) {
	raw, err := store.Get(ctx, key)
	if errors.Is(err, pkgredis.Nil) {
		// the first attempt ended in a 5xx between our SetNX and Get
		fail(w, r, pkgerrors.New(pkgerrors.CodeConcurrencyConflict, "request with this Idempotency-Key just finished, retry"))
		return
	}
	if err != nil {
		fail(w, r, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load idempotency record"))
		return
	}

	var prior replay
	if err := json.Unmarshal([]byte(raw), &prior); err != nil {
		fail(w, r, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode idempotency record"))
		return
	}
	switch {
	case prior.Fingerprint != fp:
		fail(w, r, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
	case !prior.Done:
		fail(w, r, pkgerrors.New(pkgerrors.CodeConcurrencyConflict, "request with this Idempotency-Key is still in progress"))
	default:
		if prior.ContentType != "" {
			w.Header().Set("Content-Type", prior.ContentType)
		}
		w.Header().Set(replayedHeader, "true")
		w.WriteHeader(prior.Status)
		_, _ = w.Write(prior.Body)
	}
}

func fingerprint(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (c *responseCapture) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

func (c *responseCapture) statusOrOK() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}
