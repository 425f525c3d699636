package models

import "time"

// CredentialType is a global catalogue entry such as "ssh_key".
type CredentialType struct {
	ID   string
	ZRN  string
	Name string
}

// Credential is a secret owned by a user and filed under one namespace.
// Password, SSHPrivateKey, SecretText and FileContent hold sealed values
// while persisted. FileKey is set when the file content lives in object
// storage instead of FileContent.
type Credential struct {
	ID               string
	ZRN              string
	UserID           string
	NamespaceID      string
	CredentialTypeID string

	Title         string
	Username      string
	Password      string
	SSHPublicKey  string
	SSHPrivateKey string
	SecretText    string
	FileName      string
	FileContent   string
	FileKey       string
	Notes         string

	CreatedAt time.Time
	UpdatedAt time.Time

	// Filled by joins on reads.
	Namespace      *Namespace
	CredentialType *CredentialType
}
