package http

import (
	"time"

	"github.com/zekret/zekret/internal/server/models"
	"github.com/zekret/zekret/internal/server/services"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type authResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	Message      string `json:"message"`
}

func toAuthResponse(r *services.AuthResult) authResponse {
	return authResponse{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		Message:      r.Message,
	}
}

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type userResponse struct {
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
	Enabled   bool      `json:"enabled"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{
		Email:     u.Email,
		Username:  u.Username,
		CreatedAt: u.CreatedAt,
		Enabled:   u.Enabled,
	}
}

type namespaceRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (r namespaceRequest) input() services.NamespaceInput {
	return services.NamespaceInput{Name: r.Name, Description: r.Description}
}

type namespaceResponse struct {
	ZRN         string    `json:"zrn"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toNamespaceResponse(n *models.Namespace) *namespaceResponse {
	if n == nil {
		return nil
	}
	return &namespaceResponse{
		ZRN:         n.ZRN,
		Name:        n.Name,
		Description: n.Description,
		CreatedAt:   n.CreatedAt,
		UpdatedAt:   n.UpdatedAt,
	}
}

type credentialTypeResponse struct {
	ZRN  string `json:"zrn"`
	Name string `json:"name"`
}

func toCredentialTypeResponse(ct *models.CredentialType) *credentialTypeResponse {
	if ct == nil {
		return nil
	}
	return &credentialTypeResponse{ZRN: ct.ZRN, Name: ct.Name}
}

type credentialRequest struct {
	Title             string `json:"title"`
	Username          string `json:"username"`
	Password          string `json:"password"`
	SSHPublicKey      string `json:"sshPublicKey"`
	SSHPrivateKey     string `json:"sshPrivateKey"`
	SecretText        string `json:"secretText"`
	FileName          string `json:"fileName"`
	FileContent       string `json:"fileContent"`
	Notes             string `json:"notes"`
	CredentialTypeZRN string `json:"credentialTypeZrn"`
	NamespaceZRN      string `json:"namespaceZrn"`
}

func (r credentialRequest) input() services.CredentialInput {
	return services.CredentialInput{
		Title:             r.Title,
		Username:          r.Username,
		Password:          r.Password,
		SSHPublicKey:      r.SSHPublicKey,
		SSHPrivateKey:     r.SSHPrivateKey,
		SecretText:        r.SecretText,
		FileName:          r.FileName,
		FileContent:       r.FileContent,
		Notes:             r.Notes,
		CredentialTypeZRN: r.CredentialTypeZRN,
		NamespaceZRN:      r.NamespaceZRN,
	}
}

type credentialResponse struct {
	ZRN            string                  `json:"zrn"`
	Title          string                  `json:"title"`
	Username       string                  `json:"username"`
	Password       string                  `json:"password"`
	SSHPublicKey   string                  `json:"sshPublicKey"`
	SSHPrivateKey  string                  `json:"sshPrivateKey"`
	SecretText     string                  `json:"secretText"`
	FileName       string                  `json:"fileName"`
	FileContent    string                  `json:"fileContent"`
	Notes          string                  `json:"notes"`
	CreatedAt      time.Time               `json:"createdAt"`
	UpdatedAt      time.Time               `json:"updatedAt"`
	CredentialType *credentialTypeResponse `json:"credentialType"`
	Namespace      *namespaceResponse      `json:"namespace"`
}

func toCredentialResponse(c *models.Credential) credentialResponse {
	return credentialResponse{
		ZRN:            c.ZRN,
		Title:          c.Title,
		Username:       c.Username,
		Password:       c.Password,
		SSHPublicKey:   c.SSHPublicKey,
		SSHPrivateKey:  c.SSHPrivateKey,
		SecretText:     c.SecretText,
		FileName:       c.FileName,
		FileContent:    c.FileContent,
		Notes:          c.Notes,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
		CredentialType: toCredentialTypeResponse(c.CredentialType),
		Namespace:      toNamespaceResponse(c.Namespace),
	}
}
