package billing

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/Spok95/maos-da-obra/internal/apperr"
)

const maxHolderName = 60

var expiryRe = regexp.MustCompile(`^(0[1-9]|1[0-2])/(\d{2})$`)

// CardInput - данные карты как их ввёл пользователь.
type CardInput struct {
	Number     string `json:"number"`
	HolderName string `json:"holderName"`
	Expiry     string `json:"expiry"` // MM/YY
	CVV        string `json:"cvv"`
}

// NormalizedCard - данные карты в формате шлюза.
type NormalizedCard struct {
	Number     string
	HolderName string
	Expiry     string // YYYY-MM
	CVV        string
}

// CardDigits убирает пробелы из номера карты.
func CardDigits(number string) string {
	return strings.Join(strings.Fields(number), "")
}

// HolderName: без диакритики, верхний регистр, только A–Z и пробелы, не длиннее 60.
func HolderName(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(t, name)
	if err != nil {
		plain = name
	}
	plain = strings.ToUpper(plain)

	var b strings.Builder
	for _, r := range plain {
		switch {
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	out := strings.Join(strings.Fields(b.String()), " ")
	if len(out) > maxHolderName {
		out = strings.TrimSpace(out[:maxHolderName])
	}
	return out
}

// ConvertExpiry переводит MM/YY в YYYY-MM.
func ConvertExpiry(mmyy string) (string, bool) {
	m := expiryRe.FindStringSubmatch(strings.TrimSpace(mmyy))
	if m == nil {
		return "", false
	}
	return "20" + m[2] + "-" + m[1], true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// NormalizeCard проверяет и нормализует карту. Ошибки - ValidationError, до сети не доходит.
func NormalizeCard(in CardInput) (NormalizedCard, error) {
	number := CardDigits(in.Number)
	if !isDigits(number) || len(number) < 16 || len(number) > 19 {
		return NormalizedCard{}, apperr.Invalid("card.number", "Número do cartão inválido.")
	}
	cvv := strings.TrimSpace(in.CVV)
	if !isDigits(cvv) || len(cvv) < 3 || len(cvv) > 4 {
		return NormalizedCard{}, apperr.Invalid("card.cvv", "CVV inválido.")
	}
	expiry, ok := ConvertExpiry(in.Expiry)
	if !ok {
		return NormalizedCard{}, apperr.Invalid("card.expiry", "Validade deve estar no formato MM/AA.")
	}
	holder := HolderName(in.HolderName)
	if holder == "" {
		return NormalizedCard{}, apperr.Invalid("card.holderName", "Informe o nome impresso no cartão.")
	}
	return NormalizedCard{Number: number, HolderName: holder, Expiry: expiry, CVV: cvv}, nil
}
