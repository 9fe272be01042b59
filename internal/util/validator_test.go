package util

import (
	"strings"
	"testing"
)

func TestRequireString(t *testing.T) {
	if err := RequireString("Ouvidoria", "nome"); err != nil {
		t.Fatalf("valor preenchido rejeitado: %v", err)
	}

	for _, valor := range []string{"", "   ", "\t\n"} {
		err := RequireString(valor, "nome")
		if err == nil {
			t.Fatalf("valor %q deveria ser rejeitado", valor)
		}
		if !strings.Contains(err.Error(), "nome") {
			t.Fatalf("erro %q deveria citar o campo", err)
		}
	}
}

func TestValidateCPF(t *testing.T) {
	if err := ValidateCPF("529.982.247-25"); err != nil {
		t.Fatalf("cpf válido rejeitado: %v", err)
	}
	if err := ValidateCPF("52998224725"); err != nil {
		t.Fatalf("cpf válido sem pontuação rejeitado: %v", err)
	}

	for _, cpf := range []string{"111.111.111-11", "529.982.247-26", "123"} {
		if err := ValidateCPF(cpf); err == nil {
			t.Fatalf("cpf %q deveria ser rejeitado", cpf)
		}
	}
}
