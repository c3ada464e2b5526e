package enroll

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rainbow59216/snatcher/pkg/config"
)

func loginTestServer(t *testing.T, onLogin func(w http.ResponseWriter, password string)) *httptest.Server {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.HandleFunc(publicKeyPath, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(publicKeyResponse{
			Modulus:  base64.StdEncoding.EncodeToString(key.N.Bytes()),
			Exponent: base64.StdEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
		})
	})
	mux.HandleFunc(loginPath, func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		cipher, err := base64.StdEncoding.DecodeString(r.PostForm.Get("mm"))
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		plain, err := rsa.DecryptPKCS1v15(nil, key, cipher)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		assert.Equal(t, "zh_CN", r.PostForm.Get("language"))
		onLogin(w, string(plain))
	})
	return httptest.NewServer(mux)
}

func loginClientFor() *Client {
	return NewClient(config.EnrollConfig{
		BaseURLTemplate: "%s",
		LoginTimeout:    5 * time.Second,
		RequestTimeout:  5 * time.Second,
	}, nil)
}

func TestLogin(t *testing.T) {
	srv := loginTestServer(t, func(w http.ResponseWriter, password string) {
		assert.Equal(t, "hunter2", password)
		http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: "fresh-session"})
		w.WriteHeader(http.StatusFound)
	})
	defer srv.Close()

	cookie, err := loginClientFor().Login(context.Background(), srv.URL, "1912010304", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "fresh-session", cookie)
}

func TestLoginRejectedCredential(t *testing.T) {
	// A wrong password re-renders the login page with a 200.
	srv := loginTestServer(t, func(w http.ResponseWriter, password string) {
		w.WriteHeader(http.StatusOK)
	})
	defer srv.Close()

	_, err := loginClientFor().Login(context.Background(), srv.URL, "1912010304", "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "login rejected")
}

func TestLoginWithoutSessionCookie(t *testing.T) {
	srv := loginTestServer(t, func(w http.ResponseWriter, password string) {
		w.WriteHeader(http.StatusFound)
	})
	defer srv.Close()

	_, err := loginClientFor().Login(context.Background(), srv.URL, "1912010304", "hunter2")
	require.Error(t, err)
}
