package app

import "errors"

// User-facing validation and authorization errors. Messages are the exact
// strings the app surfaces inline, hence Portuguese.
var (
	ErrNotSignedIn            = errors.New("faça login para continuar")
	ErrInvalidCredentials     = errors.New("email ou senha incorretos")
	ErrEmailRequired          = errors.New("insira o email")
	ErrPasswordRequired       = errors.New("insira a senha")
	ErrEmailAlreadyExists     = errors.New("este email já está registrado")
	ErrUserDisabled           = errors.New("conta desativada")
	ErrTopicRequired          = errors.New("digite o tema")
	ErrPDFRequired            = errors.New("selecione um arquivo PDF")
	ErrDownloadChoiceRequired = errors.New("escolha se o download é permitido")
	ErrInvalidPDF             = errors.New("arquivo PDF inválido")
	ErrWorkNotFound           = errors.New("trabalho não encontrado")
	ErrForbidden              = errors.New("forbidden")
	ErrDisplayNameRequired    = errors.New("insira o nome")
	ErrMessageEmpty           = errors.New("mensagem vazia")
)
