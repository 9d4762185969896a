package audit

import (
	"strings"
	"time"

	"github.com/FeoreV/telegram-ecommerce-cms-sub010/internal/gateway/domain"
)

// Risk signal weights. The score is a pure capped sum: recomputing it from
// the same event always yields the same number.
const (
	weightServerError  = 30
	weightClientError  = 15
	weightAdminPath    = 20
	weightPaymentPath  = 20
	weightAuthPath     = 10
	weightDestructive  = 15
	weightSuspiciousUA = 15
	weightOffHours     = 10
	weightBlockedByDLP = 25
	riskCap            = 100
	offHoursStart      = 22
	offHoursEnd        = 6
)

var suspiciousAgents = []string{
	"sqlmap", "nikto", "nmap", "masscan", "dirbuster", "gobuster",
	"hydra", "metasploit", "burp", "curl/", "python-requests", "wget/",
}

// RiskScore computes the 0..100 weighted score for an event and the list of
// signal names that contributed. The timestamp decides the off-hours signal
// so the computation stays deterministic.
func RiskScore(ts time.Time, req domain.RequestContext, resp *domain.ResponseContext) (int, []string) {
	score := 0
	var flags []string

	add := func(weight int, flag string) {
		score += weight
		flags = append(flags, flag)
	}

	if resp != nil {
		switch {
		case resp.Status >= 500:
			add(weightServerError, "server_error")
		case resp.Status >= 400:
			add(weightClientError, "client_error")
		}
		if resp.Blocked {
			add(weightBlockedByDLP, "response_blocked")
		}
	}

	switch {
	case pathHasPrefix(req.Path, []string{"/admin", "/api/admin"}):
		add(weightAdminPath, "admin_path")
	case pathHasPrefix(req.Path, pciPaths):
		add(weightPaymentPath, "payment_path")
	case pathHasPrefix(req.Path, []string{"/api/auth", "/auth"}):
		add(weightAuthPath, "auth_path")
	}

	switch req.Method {
	case "DELETE", "PUT", "PATCH":
		add(weightDestructive, "destructive_method")
	}

	ua := strings.ToLower(req.UserAgent)
	for _, marker := range suspiciousAgents {
		if strings.Contains(ua, marker) {
			add(weightSuspiciousUA, "suspicious_user_agent")
			break
		}
	}

	hour := ts.UTC().Hour()
	if hour >= offHoursStart || hour < offHoursEnd {
		add(weightOffHours, "off_hours")
	}

	return min(score, riskCap), flags
}
