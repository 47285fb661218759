package payment

import (
	"regexp"
	"strings"
)

var subscriberRe = regexp.MustCompile(`^254(7|1)\d{8}$`)

// NormalizePhone converts common Kenyan formats (07XXXXXXXX, +2547XXXXXXXX,
// 2547XXXXXXXX) to the canonical 254-prefixed form. Rejection happens here,
// before any provider call; the provider is not relied on to validate.
func NormalizePhone(raw string) (string, error) {
	p := strings.TrimSpace(raw)
	p = strings.ReplaceAll(p, " ", "")
	p = strings.ReplaceAll(p, "-", "")
	p = strings.TrimPrefix(p, "+")
	if strings.HasPrefix(p, "0") && len(p) == 10 {
		p = "254" + p[1:]
	}
	if !subscriberRe.MatchString(p) {
		return "", ErrInvalidPhone
	}
	return p, nil
}
