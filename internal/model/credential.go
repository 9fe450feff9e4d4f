package model

import (
	"time"

	"golang.org/x/oauth2"
)

// CalendarCredential is the OAuth token set granting access to a user's Google Calendar.
type CalendarCredential struct {
	AccessToken  string    `db:"access_token" json:"access_token"`
	RefreshToken string    `db:"refresh_token" json:"refresh_token,omitempty"`
	Scope        string    `db:"scope" json:"scope,omitempty"`
	TokenType    string    `db:"token_type" json:"token_type,omitempty"`
	Expiry       time.Time `db:"expiry" json:"expiry"`
}

// CredentialFromToken converts an oauth2 token. The granted scope is read from the token response extras.
func CredentialFromToken(tok *oauth2.Token) *CalendarCredential {
	if tok == nil {
		return nil
	}
	cred := &CalendarCredential{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		Expiry:       tok.Expiry,
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		cred.Scope = scope
	}
	return cred
}

func (c *CalendarCredential) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    c.TokenType,
		Expiry:       c.Expiry,
	}
}

// Usable reports whether the credential can authorize a call at now, either directly or after a refresh.
func (c *CalendarCredential) Usable(now time.Time) bool {
	if c == nil || (c.AccessToken == "" && c.RefreshToken == "") {
		return false
	}
	if c.RefreshToken != "" {
		return true
	}
	return c.Expiry.IsZero() || now.Before(c.Expiry)
}

// Merge returns next with the refresh token carried over from c when the provider omitted it on re-consent.
func (c *CalendarCredential) Merge(next *CalendarCredential) *CalendarCredential {
	merged := *next
	if merged.RefreshToken == "" && c != nil {
		merged.RefreshToken = c.RefreshToken
	}
	if merged.Scope == "" && c != nil {
		merged.Scope = c.Scope
	}
	return &merged
}
