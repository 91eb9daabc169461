// token emite un JWT para la API del motor (operadores y pruebas manuales).
//
// Uso: go run ./cmd/token -company <id> [-role admin|bodeguero|comprador] [-user <id>] [-minutes 60]
// Lee JWT_SECRET y JWT_ISSUER de la misma configuración que el motor.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jhoicas/stock-replenishment/pkg/config"
	"github.com/jhoicas/stock-replenishment/pkg/jwt"
)

func main() {
	company := flag.String("company", "", "ID de la empresa (obligatorio)")
	role := flag.String("role", "admin", "rol: admin, bodeguero o comprador")
	user := flag.String("user", "ops", "ID del usuario")
	minutes := flag.Int("minutes", 0, "vigencia en minutos (0 = JWT_EXPIRATION_MINUTES)")
	flag.Parse()

	if *company == "" {
		fmt.Fprintln(os.Stderr, "-company es obligatorio")
		flag.Usage()
		os.Exit(2)
	}
	if !jwt.ValidRole(*role) {
		fmt.Fprintf(os.Stderr, "rol desconocido: %s\n", *role)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
		os.Exit(1)
	}
	signer, err := jwt.NewSigner(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TTL())
	if err != nil {
		fmt.Fprintf(os.Stderr, "JWT_SECRET: %v\n", err)
		os.Exit(1)
	}
	id := jwt.Identity{UserID: *user, CompanyID: *company, Role: *role}
	var tok string
	if *minutes > 0 {
		tok, err = signer.IssueFor(id, time.Duration(*minutes)*time.Minute)
	} else {
		tok, err = signer.Issue(id)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Generar token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(tok)
}
