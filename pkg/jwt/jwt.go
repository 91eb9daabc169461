// Package jwt firma y valida los tokens de la API del motor.
// La empresa del token delimita qué ubicaciones, traslados y órdenes se pueden ver.
package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Roles del motor.
const (
	RoleAdmin     = "admin"     // operaciones del scheduler; pasa cualquier restricción
	RoleBodeguero = "bodeguero" // traslados, ajustes y umbrales
	RoleComprador = "comprador" // órdenes de compra
)

var (
	ErrEmptySecret = errors.New("jwt: secret vacío")
	ErrNoCompany   = errors.New("jwt: el token no trae empresa")
	ErrUnknownRole = errors.New("jwt: rol desconocido")
)

// ValidRole indica si role es uno de los roles del motor.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleBodeguero, RoleComprador:
		return true
	}
	return false
}

// Identity quién llama y en nombre de qué empresa.
type Identity struct {
	UserID    string
	CompanyID string
	Role      string
}

// claims el usuario viaja en sub; empresa y rol como claims propios.
type claims struct {
	jwt.RegisteredClaims
	CompanyID string `json:"company_id"`
	Role      string `json:"role,omitempty"`
}

// Signer emite y verifica tokens HS256 de un emisor.
type Signer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewSigner crea el firmante. ttl es la vigencia por defecto de Issue.
func NewSigner(secret, issuer string, ttl time.Duration) (*Signer, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return &Signer{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}, nil
}

// Issue firma un token con la vigencia por defecto.
func (s *Signer) Issue(id Identity) (string, error) {
	return s.IssueFor(id, s.ttl)
}

// IssueFor firma un token con vigencia ttl. Un ttl negativo produce un token ya vencido.
// El rol vacío se acepta: RequireRole lo rechaza en cada ruta protegida.
func (s *Signer) IssueFor(id Identity, ttl time.Duration) (string, error) {
	if id.CompanyID == "" {
		return "", ErrNoCompany
	}
	if id.Role != "" && !ValidRole(id.Role) {
		return "", fmt.Errorf("%w: %s", ErrUnknownRole, id.Role)
	}
	now := s.now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		CompanyID: id.CompanyID,
		Role:      id.Role,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
}

// Verify valida firma, vencimiento y emisor, y devuelve la identidad.
// Un token sin empresa no sirve para la API: devuelve ErrNoCompany.
func (s *Signer) Verify(token string) (Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	var c claims
	if _, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...); err != nil {
		return Identity{}, fmt.Errorf("verify token: %w", err)
	}
	if c.CompanyID == "" {
		return Identity{}, ErrNoCompany
	}
	return Identity{UserID: c.Subject, CompanyID: c.CompanyID, Role: c.Role}, nil
}
