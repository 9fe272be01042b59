package util

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var removeDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slugify normaliza um rótulo para slug estável: minúsculas, acentos
// removidos e qualquer sequência não alfanumérica vira um único '_'.
// "Placa do Veículo" => "placa_do_veiculo".
func Slugify(label string) string {
	label = strings.ToLower(strings.TrimSpace(label))
	if out, _, err := transform.String(removeDiacritics, label); err == nil {
		label = out
	}

	var b strings.Builder
	pendingSep := false
	for _, r := range label {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if !isAlnum {
			if b.Len() > 0 {
				pendingSep = true
			}
			continue
		}
		if pendingSep {
			b.WriteByte('_')
			pendingSep = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
