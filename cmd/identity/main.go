// Mock identity provider used for local development and end-to-end testing of
// remote session token verification.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"math/rand"
	"net/http"

	"github.com/caarlos0/env/v6"
	"github.com/go-chi/chi"
	"github.com/imellon/go-investa/internal/config"
	"github.com/imellon/go-investa/internal/service/secretary/v1/secretary"
)

type Response struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

type VerifyRequest struct {
	Token string `json:"token"`
}

type VerifyResponse struct {
	UID  string `json:"uid"`
	Role string `json:"role"`
}

type ServerConfig struct {
	ServerAddress string `env:"RUN_ADDRESS"`
}

func NewServerConfig() (*ServerConfig, error) {
	cfg := ServerConfig{}
	err := env.Parse(&cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func isFlagPassed(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func (c *ServerConfig) ParseFlags() {
	a := flag.String("a", ":7070", "Server address")
	flag.Parse()
	if isFlagPassed("a") || c.ServerAddress == "" {
		c.ServerAddress = *a
	}
}

func HandleMockIdentityVerify(sec *secretary.Secretary) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// mock http status 429 error
		chance429 := 10
		if chance429 > rand.Intn(100) {
			log.Println("responding with error 429")
			w.Header().Set("Retry-After", "60")
			w.WriteHeader(http.StatusTooManyRequests)
			response429 := Response{
				Error: "No more than N requests per minute allowed",
			}
			resBody, _ := json.Marshal(response429)
			w.Write(resBody)
			return
		}

		// mock http status 500 error
		chance500 := 5
		if chance500 > rand.Intn(100) {
			log.Println("responding with error 500")
			w.WriteHeader(http.StatusInternalServerError)
			response500 := Response{
				Error: "Internal identity provider error",
			}
			resBody, _ := json.Marshal(response500)
			w.Write(resBody)
			return
		}

		var request VerifyRequest
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if request.Token == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		uid, role, err := sec.ValidateToken(request.Token)
		if err != nil {
			log.Println("rejecting invalid token:", err)
			w.WriteHeader(http.StatusUnauthorized)
			response401 := Response{Error: "Invalid session token"}
			resBody, _ := json.Marshal(response401)
			w.Write(resBody)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		resBody, _ := json.Marshal(VerifyResponse{UID: uid, Role: role})
		w.Write(resBody)
	}
}

func main() {
	cfg, err := NewServerConfig()
	if err != nil {
		log.Fatal(err)
	}
	cfg.ParseFlags()

	secretCfg, err := config.NewSecretConfig()
	if err != nil {
		log.Fatal(err)
	}
	sec, err := secretary.NewSecretaryService(secretCfg, false)
	if err != nil {
		log.Fatal(err)
	}

	r := chi.NewRouter()
	r.Post("/api/identity/verify", HandleMockIdentityVerify(sec))
	log.Fatal(http.ListenAndServe(cfg.ServerAddress, r))
}
