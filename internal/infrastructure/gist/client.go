package gist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/minhdn/price-alert-bot/internal/domain"
)

const (
	BaseURL = "https://api.github.com"

	// Имя файла внутри гиста, зафиксировано историческим содержимым
	mirrorFileName = "token-notification"
)

// Client - зеркало подписок в GitHub Gist. Источником истины всегда
// остается Postgres, сюда данные уходят best-effort: любая ошибка
// логируется вызывающим и не трогает основную запись.
type Client struct {
	baseURL    string
	token      string
	gistID     string
	httpClient *http.Client
}

func NewClient(token, gistID string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    BaseURL,
		token:      token,
		gistID:     gistID,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Enabled - зеркало настроено (заданы и токен, и id гиста)
func (c *Client) Enabled() bool {
	return c.token != "" && c.gistID != ""
}

// --- Implementation of MirrorStore ---

// FetchTokens читает текущее содержимое зеркала
func (c *Client) FetchTokens(ctx context.Context) ([]domain.MirrorToken, error) {
	if !c.Enabled() {
		return nil, nil
	}

	var gist gistResponse
	if err := c.send(ctx, http.MethodGet, nil, &gist); err != nil {
		return nil, err
	}

	// Берем файл зеркала, а если его нет - первый попавшийся:
	// старые гисты могли называть файл иначе
	file, ok := gist.Files[mirrorFileName]
	if !ok {
		for _, f := range gist.Files {
			file = f
			break
		}
	}
	if file.Content == "" {
		return nil, nil
	}

	var payload mirrorPayload
	if err := json.Unmarshal([]byte(file.Content), &payload); err != nil {
		return nil, fmt.Errorf("failed to parse mirror content: %w", err)
	}
	return payload.Tokens, nil
}

// AppendToken дописывает запись в зеркало: текущий список читается,
// дополняется и заливается обратно целиком
func (c *Client) AppendToken(ctx context.Context, token domain.MirrorToken) error {
	if !c.Enabled() {
		return nil
	}

	existing, err := c.FetchTokens(ctx)
	if err != nil {
		return err
	}

	return c.ReplaceTokens(ctx, append(existing, token))
}

// ReplaceTokens перезаписывает зеркало целиком (им же пользуется сидер)
func (c *Client) ReplaceTokens(ctx context.Context, tokens []domain.MirrorToken) error {
	if !c.Enabled() {
		return nil
	}

	content, err := json.MarshalIndent(mirrorPayload{Tokens: tokens}, "", "  ")
	if err != nil {
		return err
	}

	body := map[string]interface{}{
		"files": map[string]interface{}{
			mirrorFileName: map[string]string{
				"content": string(content),
			},
		},
	}
	return c.send(ctx, http.MethodPatch, body, nil)
}

// --- Private Helpers ---

func (c *Client) send(ctx context.Context, method string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		jsonBytes, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(jsonBytes)
	}

	endpoint := fmt.Sprintf("%s/gists/%s", c.baseURL, c.gistID)
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return err
	}

	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusForbidden:
		// Чаще всего токен без scope "gist" либо гист чужой
		return fmt.Errorf("github api: no permission to edit gist %s", c.gistID)
	case http.StatusNotFound:
		return fmt.Errorf("github api: gist %s not found", c.gistID)
	default:
		return fmt.Errorf("github api error: status %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

// --- DTOs GitHub API ---

type gistFile struct {
	Content string `json:"content"`
}

type gistResponse struct {
	Files map[string]gistFile `json:"files"`
}

// mirrorPayload - формат содержимого файла зеркала
type mirrorPayload struct {
	Tokens []domain.MirrorToken `json:"tokens"`
}
