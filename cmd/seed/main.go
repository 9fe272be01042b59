package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ouvidoriadigital/portal/internal/assunto"
	"github.com/ouvidoriadigital/portal/internal/auth"
	"github.com/ouvidoriadigital/portal/internal/db"
	"github.com/ouvidoriadigital/portal/internal/repo"
	"github.com/ouvidoriadigital/portal/internal/util"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	_ = godotenv.Load()

	ctx := context.Background()

	dsn := strings.TrimSpace(os.Getenv("DB_DSN"))
	if dsn == "" {
		dsn = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	}
	if dsn == "" {
		log.Fatal().Msg("defina DB_DSN ou DATABASE_URL")
	}

	pool, err := db.NewPool(ctx, dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("não foi possível conectar ao banco")
	}
	defer pool.Close()

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "assuntos":
		svc := assunto.NewService(assunto.NewRepository(pool), nil)
		if err := runAssuntos(ctx, svc); err != nil {
			log.Fatal().Err(err).Msg("falha ao semear assuntos")
		}
	case "admin":
		if err := runAdmin(ctx, repo.New(pool), args); err != nil {
			log.Fatal().Err(err).Msg("falha ao criar administrador")
		}
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "seed CLI")
	fmt.Fprintln(os.Stderr, "uso:")
	fmt.Fprintln(os.Stderr, "  seed assuntos")
	fmt.Fprintln(os.Stderr, "  seed admin --nome \"Ouvidora Chefe\" --email ouvidoria@cidade.gov.br --senha <senha>")
}

func runAdmin(ctx context.Context, queries *repo.Queries, args []string) error {
	fs := flag.NewFlagSet("admin", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var (
		nome  = fs.String("nome", "", "nome completo")
		email = fs.String("email", "", "e-mail de acesso")
		senha = fs.String("senha", "", "senha inicial")
	)

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *nome == "" || *email == "" || *senha == "" {
		return errors.New("nome, email e senha são obrigatórios")
	}
	if err := util.ValidatePassword(*senha); err != nil {
		return err
	}

	hash, err := auth.Hash(*senha)
	if err != nil {
		return err
	}

	user, err := queries.CreateUsuario(ctx, repo.CreateUsuarioParams{
		Nome:      strings.TrimSpace(*nome),
		Email:     strings.ToLower(strings.TrimSpace(*email)),
		SenhaHash: hash,
		Admin:     true,
	})
	if err != nil {
		return err
	}

	output, _ := json.MarshalIndent(map[string]string{
		"id":    user.ID.String(),
		"nome":  user.Nome,
		"email": user.Email,
	}, "", "  ")
	fmt.Println(string(output))
	return nil
}

type seedAssunto struct {
	nome      string
	descricao string
	campos    []assunto.CampoInput
}

// Catálogo inicial de assuntos, com os campos exigidos por cada tema.
var catalogoAssuntos = []seedAssunto{
	{
		nome:      "Servidor Público",
		descricao: "Reclamações, denúncias ou sugestões relacionadas a servidores públicos",
		campos: []assunto.CampoInput{
			{Rotulo: "Nome do Servidor", Tipo: assunto.CampoTexto, Obrigatorio: true},
			{Rotulo: "Órgão/Entidade", Tipo: assunto.CampoTexto, Obrigatorio: true},
			{Rotulo: "Setor/Locação", Tipo: assunto.CampoTexto},
			{Rotulo: "Data do Fato", Tipo: assunto.CampoData, Obrigatorio: true},
			{Rotulo: "Horário do Fato", Tipo: assunto.CampoHora},
			{Rotulo: "Subassunto", Tipo: assunto.CampoSelecao, Obrigatorio: true, Opcoes: []string{"Conduta Irregular", "Incompetência", "Negligência", "Outro"}},
			{Rotulo: "Tipo de Vínculo", Tipo: assunto.CampoSelecao, Opcoes: []string{"Efetivo", "Contratado", "Comissionado", "Outro"}},
		},
	},
	{
		nome:      "Serviço Público",
		descricao: "Problemas relacionados à qualidade e prestação de serviços públicos",
		campos: []assunto.CampoInput{
			{Rotulo: "Nome do Serviço", Tipo: assunto.CampoTexto, Obrigatorio: true},
			{Rotulo: "Órgão Responsável", Tipo: assunto.CampoTexto, Obrigatorio: true},
			{Rotulo: "Local do Serviço", Tipo: assunto.CampoTexto},
			{Rotulo: "Data do Fato", Tipo: assunto.CampoData, Obrigatorio: true},
			{Rotulo: "Tipo de Problema", Tipo: assunto.CampoSelecao, Obrigatorio: true, Opcoes: []string{"Falta de Atendimento", "Atendimento Ruim", "Demora", "Falta de Informação", "Outro"}},
		},
	},
	{
		nome:      "Saúde",
		descricao: "Problemas e reclamações relacionados a serviços de saúde",
		campos: []assunto.CampoInput{
			{Rotulo: "Estabelecimento de Saúde", Tipo: assunto.CampoTexto, Obrigatorio: true},
			{Rotulo: "Tipo", Tipo: assunto.CampoSelecao, Obrigatorio: true, Opcoes: []string{"Hospital", "Clínica", "Posto de Saúde", "Farmácia", "Outro"}},
			{Rotulo: "Data do Fato", Tipo: assunto.CampoData, Obrigatorio: true},
			{Rotulo: "Tipo de Problema", Tipo: assunto.CampoSelecao, Obrigatorio: true, Opcoes: []string{"Atendimento", "Medicamento", "Infraestrutura", "Outro"}},
		},
	},
	{
		nome:      "Educação",
		descricao: "Questões relacionadas a instituições de ensino e educação",
		campos: []assunto.CampoInput{
			{Rotulo: "Instituição de Ensino", Tipo: assunto.CampoTexto, Obrigatorio: true},
			{Rotulo: "Tipo", Tipo: assunto.CampoSelecao, Obrigatorio: true, Opcoes: []string{"Pública", "Privada", "Conveniada"}},
			{Rotulo: "Nível de Ensino", Tipo: assunto.CampoSelecao, Obrigatorio: true, Opcoes: []string{"Educação Infantil", "Ensino Fundamental", "Ensino Médio", "Educação Superior", "Outro"}},
			{Rotulo: "Data do Fato", Tipo: assunto.CampoData, Obrigatorio: true},
		},
	},
	{
		nome:      "Segurança Pública",
		descricao: "Questões relacionadas a segurança, polícia e ordem pública",
		campos: []assunto.CampoInput{
			{Rotulo: "Órgão", Tipo: assunto.CampoSelecao, Obrigatorio: true, Opcoes: []string{"Polícia Militar", "Polícia Civil", "Bombeiros", "Guarda Municipal", "Outro"}},
			{Rotulo: "Data do Fato", Tipo: assunto.CampoData, Obrigatorio: true},
			{Rotulo: "Local do Fato", Tipo: assunto.CampoTexto, Obrigatorio: true},
			{Rotulo: "Tipo de Problema", Tipo: assunto.CampoSelecao, Obrigatorio: true, Opcoes: []string{"Abuso de Autoridade", "Falta de Atendimento", "Negligência", "Outro"}},
		},
	},
	{
		nome:      "Infraestrutura e Mobilidade",
		descricao: "Problemas com infraestrutura, transportes e mobilidade urbana",
		campos: []assunto.CampoInput{
			{Rotulo: "Tipo", Tipo: assunto.CampoSelecao, Obrigatorio: true, Opcoes: []string{"Rua/Avenida", "Transporte Público", "Estacionamento", "Ciclovias", "Outro"}},
			{Rotulo: "Endereço/Local", Tipo: assunto.CampoTexto, Obrigatorio: true},
			{Rotulo: "Data do Fato", Tipo: assunto.CampoData, Obrigatorio: true},
			{Rotulo: "Tipo de Problema", Tipo: assunto.CampoSelecao, Obrigatorio: true, Opcoes: []string{"Buraco/Estrago", "Falta de Manutenção", "Demora", "Outro"}},
		},
	},
	{
		nome:      "Meio Ambiente",
		descricao: "Questões ambientais e de sustentabilidade",
		campos: []assunto.CampoInput{
			{Rotulo: "Tipo de Problema", Tipo: assunto.CampoSelecao, Obrigatorio: true, Opcoes: []string{"Poluição", "Desmatamento", "Resíduos", "Outro"}},
			{Rotulo: "Local", Tipo: assunto.CampoTexto, Obrigatorio: true},
			{Rotulo: "Data do Fato", Tipo: assunto.CampoData, Obrigatorio: true},
		},
	},
	{
		nome:      "Transparência e Acesso à Informação",
		descricao: "Problemas relacionados a transparência e acesso a informações públicas",
		campos: []assunto.CampoInput{
			{Rotulo: "Órgão", Tipo: assunto.CampoTexto, Obrigatorio: true},
			{Rotulo: "Tipo de Problema", Tipo: assunto.CampoSelecao, Obrigatorio: true, Opcoes: []string{"Informação Negada", "Demora na Resposta", "Informação Incompleta", "Outro"}},
			{Rotulo: "Data do Fato", Tipo: assunto.CampoData, Obrigatorio: true},
		},
	},
	{
		nome:      "Administração e Gestão Pública",
		descricao: "Questões gerais sobre administração e gestão pública",
		campos: []assunto.CampoInput{
			{Rotulo: "Órgão", Tipo: assunto.CampoTexto, Obrigatorio: true},
			{Rotulo: "Tipo de Problema", Tipo: assunto.CampoSelecao, Obrigatorio: true, Opcoes: []string{"Gestão Inadequada", "Desperdício", "Corrupção", "Outro"}},
			{Rotulo: "Data do Fato", Tipo: assunto.CampoData, Obrigatorio: true},
		},
	},
	{
		nome:      "Outro",
		descricao: "Manifestações que não se enquadram nos demais assuntos",
		campos: []assunto.CampoInput{
			{Rotulo: "Data do Fato", Tipo: assunto.CampoData},
		},
	},
}

func runAssuntos(ctx context.Context, svc *assunto.Service) error {
	existentes, err := svc.ListTodos(ctx)
	if err != nil {
		return err
	}
	jaExiste := make(map[string]bool, len(existentes))
	for _, a := range existentes {
		jaExiste[a.Nome] = true
	}

	criados := 0
	for _, item := range catalogoAssuntos {
		if jaExiste[item.nome] {
			log.Info().Str("assunto", item.nome).Msg("já existe, pulando")
			continue
		}
		if _, err := svc.Criar(ctx, item.nome, item.descricao, item.campos); err != nil {
			return fmt.Errorf("criar %q: %w", item.nome, err)
		}
		log.Info().Str("assunto", item.nome).Msg("criado")
		criados++
	}

	log.Info().Int("criados", criados).Int("existentes", len(existentes)).Msg("seed de assuntos concluído")
	return nil
}
