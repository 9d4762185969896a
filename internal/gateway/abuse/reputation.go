package abuse

import (
	"bytes"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"github.com/FeoreV/telegram-ecommerce-cms-sub010/internal/gateway/cache"
	"github.com/FeoreV/telegram-ecommerce-cms-sub010/internal/gateway/obs"
	"github.com/FeoreV/telegram-ecommerce-cms-sub010/pkg/httpx"
	"github.com/FeoreV/telegram-ecommerce-cms-sub010/pkg/slogx"
)

// Severity ranks an attack signature. Critical matches deny the request
// immediately regardless of the source's accumulated score.
type Severity int

const (
	SeverityHigh Severity = iota
	SeverityCritical
)

// Signature is one compiled attack pattern.
type Signature struct {
	Name     string
	Severity Severity
	Pattern  *regexp.Regexp
}

// DefaultSignatures covers the request shapes the gateway refuses to pass
// through: traversal out of the web root, markup/script smuggling, SQL
// injection probes and shell/code evaluation calls.
var DefaultSignatures = []Signature{
	{
		Name:     "path_traversal",
		Severity: SeverityHigh,
		Pattern:  regexp.MustCompile(`(?i)(\.\./|\.\.\\|%2e%2e%2f|%2e%2e/|\.\.%2f)`),
	},
	{
		Name:     "script_injection",
		Severity: SeverityHigh,
		Pattern:  regexp.MustCompile(`(?i)(<script\b|javascript:|\bon(?:error|load|click|mouseover)\s*=)`),
	},
	{
		Name:     "sql_injection",
		Severity: SeverityCritical,
		Pattern:  regexp.MustCompile(`(?i)(\bunion\s+(?:all\s+)?select\b|\bselect\s+[\w*,\s]+\bfrom\b|\binsert\s+into\b|\bdrop\s+table\b|\bdelete\s+from\b|'\s*or\s+'?\d+'?\s*=\s*'?\d+|--\s*$)`),
	},
	{
		Name:     "code_injection",
		Severity: SeverityHigh,
		Pattern:  regexp.MustCompile(`(?i)\b(?:eval|exec|system|passthru|popen|proc_open)\s*\(`),
	},
}

// maxBodyScan caps how much request body the inspector reads. Bigger bodies
// are scanned only up to the cap; the body is restored either way.
const maxBodyScan = 64 * 1024

// Reputation tracks per-IP suspicion and blocks repeat offenders. Scoring
// state lives in the shared cache; bookkeeping failures degrade silently
// because reputation is telemetry layered on top of the signature check, not
// the check itself.
type Reputation struct {
	Cache cache.Store

	// Signatures to match against each request. Defaults to
	// DefaultSignatures when empty.
	Signatures []Signature
	// BlockThreshold is the suspicion count at which an IP is blocked.
	BlockThreshold int64
	// TrackWindow bounds how long suspicion accumulates before decaying.
	TrackWindow time.Duration
	// BlockDuration is how long a blocked IP stays blocked, measured from
	// the match that crossed the threshold.
	BlockDuration time.Duration
}

func (g *Reputation) signatures() []Signature {
	if len(g.Signatures) > 0 {
		return g.Signatures
	}
	return DefaultSignatures
}

// inspect matches the request's path, raw query, header values and a bounded
// body prefix against the signature set, returning every match.
func (g *Reputation) inspect(r *http.Request) []Signature {
	var haystacks []string
	haystacks = append(haystacks, r.URL.Path, r.URL.RawQuery)
	// Percent-encoding must not hide a probe in the query string.
	if q, err := url.QueryUnescape(r.URL.RawQuery); err == nil && q != r.URL.RawQuery {
		haystacks = append(haystacks, q)
	}
	for _, name := range []string{"User-Agent", "Referer", "Cookie"} {
		if v := r.Header.Get(name); v != "" {
			haystacks = append(haystacks, v)
		}
	}

	if r.Body != nil && r.Body != http.NoBody {
		peek, err := io.ReadAll(io.LimitReader(r.Body, maxBodyScan))
		if err == nil {
			rest := r.Body
			r.Body = struct {
				io.Reader
				io.Closer
			}{io.MultiReader(bytes.NewReader(peek), rest), rest}
			haystacks = append(haystacks, string(peek))
		}
	}

	var matched []Signature
	for _, sig := range g.signatures() {
		for _, h := range haystacks {
			if h != "" && sig.Pattern.MatchString(h) {
				matched = append(matched, sig)
				break
			}
		}
	}
	return matched
}

// Middleware rejects requests from blocked IPs, scores signature matches,
// and blocks IPs whose suspicion count crosses the threshold. A critical
// match is denied on the spot even if the IP is otherwise in good standing.
func (g *Reputation) Middleware() httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)
			ip := httpx.ClientIP(r)

			if blocked, err := g.Cache.Exists(ctx, cache.ReputationBlockKey(ip)); err == nil && blocked {
				obs.Denial("ip_block")
				httpx.WriteError(w, http.StatusForbidden, httpx.CodeIPBlocked,
					"requests from this address are temporarily blocked")
				return
			}

			matched := g.inspect(r)
			if len(matched) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			critical := false
			names := make([]string, 0, len(matched))
			for _, sig := range matched {
				names = append(names, sig.Name)
				if sig.Severity == SeverityCritical {
					critical = true
				}
			}

			count, err := g.Cache.Incr(ctx, cache.ReputationKey(ip), g.TrackWindow)
			if err != nil {
				log.Warn("reputation bookkeeping degraded", "error", err, "ip", ip)
			} else if count >= g.BlockThreshold {
				if err := g.Cache.Set(ctx, cache.ReputationBlockKey(ip), strconv.FormatInt(count, 10), g.BlockDuration); err != nil {
					log.Warn("reputation block write failed", "error", err, "ip", ip)
				}
				log.Warn("ip blocked for repeated suspicious activity",
					"ip", ip,
					"suspicion_count", count,
					"block_duration", g.BlockDuration,
				)
				obs.Denial("ip_block")
				httpx.WriteError(w, http.StatusForbidden, httpx.CodeIPBlocked,
					"requests from this address are temporarily blocked")
				return
			}

			if critical {
				log.Warn("critical attack signature",
					"ip", ip,
					"signatures", names,
					"path", r.URL.Path,
				)
				obs.Denial("signature")
				httpx.WriteError(w, http.StatusForbidden, httpx.CodeSuspiciousRequest,
					"request rejected")
				return
			}

			log.Warn("suspicious request signature",
				"ip", ip,
				"signatures", names,
				"path", r.URL.Path,
			)
			next.ServeHTTP(w, r)
		})
	}
}
