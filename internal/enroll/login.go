package enroll

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
)

const (
	publicKeyPath = "/xtgl/login_getPublicKey.html"
	loginPath     = "/xtgl/login_slogin.html"
)

type publicKeyResponse struct {
	Modulus  string `json:"modulus"`
	Exponent string `json:"exponent"`
}

// Login performs the simulated login against one backend host: it fetches the
// RSA public key, posts the encrypted credential and harvests the session
// cookie. The remote signals success with a redirect, not a 200.
func (c *Client) Login(ctx context.Context, host, username, password string) (string, error) {
	baseURL := c.cfg.BaseURL(host)

	jar, err := cookiejar.New(nil)
	if err != nil {
		return "", fmt.Errorf("login cookie jar: %w", err)
	}
	client := &http.Client{
		Timeout: c.cfg.LoginTimeout,
		Jar:     jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	encrypted, err := c.encryptPassword(ctx, client, baseURL, password)
	if err != nil {
		return "", err
	}

	form := url.Values{}
	form.Set("language", "zh_CN")
	form.Set("yhm", username)
	form.Set("mm", encrypted)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+loginPath, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("login post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusFound {
		return "", fmt.Errorf("login rejected with status %d", resp.StatusCode)
	}

	if cookie := sessionCookie(resp.Cookies()); cookie != "" {
		return cookie, nil
	}
	if u, err := url.Parse(baseURL + loginPath); err == nil {
		if cookie := sessionCookie(jar.Cookies(u)); cookie != "" {
			return cookie, nil
		}
	}
	return "", fmt.Errorf("login succeeded but no %s cookie was issued", sessionCookieName)
}

func (c *Client) encryptPassword(ctx context.Context, client *http.Client, baseURL, password string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+publicKeyPath, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch public key: %w", err)
	}
	defer resp.Body.Close()

	var key publicKeyResponse
	if err := json.NewDecoder(resp.Body).Decode(&key); err != nil {
		return "", fmt.Errorf("decode public key: %w", err)
	}

	modulus, err := base64.StdEncoding.DecodeString(key.Modulus)
	if err != nil {
		return "", fmt.Errorf("decode modulus: %w", err)
	}
	exponent, err := base64.StdEncoding.DecodeString(key.Exponent)
	if err != nil {
		return "", fmt.Errorf("decode exponent: %w", err)
	}

	pub := &rsa.PublicKey{
		N: new(big.Int).SetBytes(modulus),
		E: int(new(big.Int).SetBytes(exponent).Int64()),
	}

	cipher, err := rsa.EncryptPKCS1v15(rand.Reader, pub, []byte(password))
	if err != nil {
		return "", fmt.Errorf("encrypt password: %w", err)
	}
	return base64.StdEncoding.EncodeToString(cipher), nil
}

func sessionCookie(cookies []*http.Cookie) string {
	for _, c := range cookies {
		if c.Name == sessionCookieName && c.Value != "" {
			return c.Value
		}
	}
	return ""
}
