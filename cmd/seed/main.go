package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
)

// ----------------------------------------------------------------------------
// Config ---------------------------------------------------------------------
var (
	baseURL    = flag.String("url", env("API_BASE_URL", "http://localhost:8080"), "Server base URL")
	username   = flag.String("user", env("USERNAME", "demo"), "Account username")
	email      = flag.String("email", env("EMAIL", "demo@example.com"), "User e-mail")
	pass       = flag.String("pass", env("PASSWORD", "Password123"), "User password")
	nNotes     = flag.Int("n", envInt("COUNT", 500), "How many notes to create")
	nNotebooks = flag.Int("notebooks", envInt("NOTEBOOKS", 3), "How many notebooks to create")
)

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		var i int
		i, err := fmt.Sscan(v, &i)
		if err != nil {
			return def
		}
		if i > 0 {
			return i
		}
	}
	return def
}

// ----------------------------------------------------------------------------
// HTTP helpers ---------------------------------------------------------------
func postJSON(path string, body any, hdr map[string]string) (*http.Response, error) {
	b, _ := json.Marshal(body)
	req, _ := http.NewRequest(http.MethodPost, *baseURL+path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	return http.DefaultClient.Do(req)
}

func must(body io.ReadCloser) []byte {
	defer body.Close()
	data, _ := io.ReadAll(body)
	return data
}

// ----------------------------------------------------------------------------
// Main -----------------------------------------------------------------------
func main() {
	flag.Parse()
	gofakeit.Seed(time.Now().UnixNano())

	fmt.Printf("Seeding account %s (notes=%d, notebooks=%d) on %s\n",
		*email, *nNotes, *nNotebooks, *baseURL)

	token, err := ensureUser()
	if err != nil {
		fmt.Fprintln(os.Stderr, "FATAL:", err)
		os.Exit(1)
	}

	if err := createNotebooks(token, *nNotebooks); err != nil {
		fmt.Fprintln(os.Stderr, "FATAL:", err)
		os.Exit(1)
	}

	if err := createNotes(token, *nNotes); err != nil {
		fmt.Fprintln(os.Stderr, "FATAL:", err)
		os.Exit(1)
	}

	fmt.Println("✔ done")
}

// ----------------------------------------------------------------------------
// Step 1 – make sure the user exists -----------------------------------------
func ensureUser() (string, error) {
	register := map[string]string{"username": *username, "email": *email, "password": *pass}

	// Try register first …
	if resp, err := postJSON("/api/v1/auth/register", register, nil); err == nil && resp.StatusCode < 300 {
		var r struct {
			Token string `json:"token"`
		}
		_ = json.Unmarshal(must(resp.Body), &r)
		fmt.Println("• registered new user")
		return r.Token, nil
	}

	// … otherwise fall back to login.
	login := map[string]string{"email": *email, "password": *pass}
	resp, err := postJSON("/api/v1/auth/login", login, nil)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login failed (%d): %s", resp.StatusCode, must(resp.Body))
	}
	var r struct {
		Token string `json:"token"`
	}
	_ = json.Unmarshal(must(resp.Body), &r)
	fmt.Println("• logged in existing user")
	return r.Token, nil
}

// ----------------------------------------------------------------------------
// Step 2 – create notebooks ---------------------------------------------------
func createNotebooks(token string, total int) error {
	h := map[string]string{"Authorization": "Bearer " + token}

	for i := 1; i <= total; i++ {
		notebook := map[string]any{
			"name": gofakeit.BookTitle(),
		}

		resp, err := postJSON("/api/v1/notebooks/", notebook, h)
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusCreated {
			return fmt.Errorf("create notebook %d failed (%d): %s", i, resp.StatusCode, must(resp.Body))
		}
	}
	if total > 0 {
		fmt.Printf("  … %d notebooks\n", total)
	}
	return nil
}

// ----------------------------------------------------------------------------
// Step 3 – create notes -------------------------------------------------------
func createNotes(token string, total int) error {
	h := map[string]string{"Authorization": "Bearer " + token}

	for i := 1; i <= total; i++ {
		note := map[string]any{
			"title":   gofakeit.Sentence(3),
			"content": gofakeit.Paragraph(1, 3, 40, " "),
			"tags":    fakeTags(),
		}

		resp, err := postJSON("/api/v1/notes/", note, h)
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusCreated {
			return fmt.Errorf("create note %d failed (%d): %s", i, resp.StatusCode, must(resp.Body))
		}

		if i%50 == 0 || i == total {
			fmt.Printf("  … %d/%d\n", i, total)
		}
	}
	return nil
}

// fakeTags returns zero to three lowercase single-word tags.
func fakeTags() []string {
	n := gofakeit.Number(0, 3)
	tags := make([]string, 0, n)
	for i := 0; i < n; i++ {
		tags = append(tags, strings.ToLower(gofakeit.Word()))
	}
	return tags
}
