package util

import "testing"

func TestSlugify(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Placa do Veículo", "placa_do_veiculo"},
		{"  Endereço   completo  ", "endereco_completo"},
		{"Nº da Ocorrência", "n_da_ocorrencia"},
		{"ÓRGÃO", "orgao"},
		{"data/hora", "data_hora"},
		{"---", ""},
		{"já_normalizado", "ja_normalizado"},
	}

	for _, tc := range cases {
		if got := Slugify(tc.in); got != tc.want {
			t.Errorf("Slugify(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
