package media

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Cloudinary is the blob store for blog images. Uploads are signed with the
// account API secret; assets land under the configured folder.
type Cloudinary struct {
	apiKey     string
	apiSecret  string
	folder     string
	uploadURL  string
	destroyURL string
	httpClient *http.Client
}

// UploadResult identifies a stored asset. PublicID is what DeleteImage needs.
type UploadResult struct {
	SecureURL string `json:"secure_url"`
	PublicID  string `json:"public_id"`
}

type cloudinaryResponse struct {
	SecureURL string `json:"secure_url"`
	PublicID  string `json:"public_id"`
	Result    string `json:"result"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func NewCloudinary(rawURL, folder string) (*Cloudinary, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("parse cloudinary url: %w", err)
	}
	if parsed.Scheme != "cloudinary" {
		return nil, fmt.Errorf("invalid cloudinary scheme")
	}

	apiKey := parsed.User.Username()
	apiSecret, ok := parsed.User.Password()
	if !ok {
		return nil, fmt.Errorf("missing cloudinary api secret")
	}
	cloudName := parsed.Hostname()
	if apiKey == "" || apiSecret == "" || cloudName == "" {
		return nil, fmt.Errorf("invalid cloudinary credentials")
	}

	folder = strings.Trim(strings.TrimSpace(folder), "/")
	if folder == "" {
		folder = "blog"
	}

	return &Cloudinary{
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		folder:     folder,
		uploadURL:  fmt.Sprintf("https://api.cloudinary.com/v1_1/%s/image/upload", cloudName),
		destroyURL: fmt.Sprintf("https://api.cloudinary.com/v1_1/%s/image/destroy", cloudName),
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
	}, nil
}

// UploadImage stores an image (a data URI or a fetchable URL) and returns its
// location.
func (c *Cloudinary) UploadImage(ctx context.Context, imageSource string) (UploadResult, error) {
	imageSource = strings.TrimSpace(imageSource)
	if imageSource == "" {
		return UploadResult{}, fmt.Errorf("empty image source")
	}

	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	fields := map[string]string{
		"folder":    c.folder,
		"timestamp": timestamp,
	}
	fields["signature"] = c.sign(fields)
	fields["api_key"] = c.apiKey
	fields["file"] = imageSource

	parsed, err := c.postForm(ctx, c.uploadURL, fields)
	if err != nil {
		return UploadResult{}, err
	}
	if parsed.SecureURL == "" {
		return UploadResult{}, fmt.Errorf("cloudinary response missing secure_url")
	}

	return UploadResult{SecureURL: parsed.SecureURL, PublicID: parsed.PublicID}, nil
}

// DeleteImage removes a previously uploaded asset. Deleting an asset that is
// already gone is not an error.
func (c *Cloudinary) DeleteImage(ctx context.Context, publicID string) error {
	publicID = strings.TrimSpace(publicID)
	if publicID == "" {
		return fmt.Errorf("empty public id")
	}

	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	fields := map[string]string{
		"public_id": publicID,
		"timestamp": timestamp,
	}
	fields["signature"] = c.sign(fields)
	fields["api_key"] = c.apiKey

	parsed, err := c.postForm(ctx, c.destroyURL, fields)
	if err != nil {
		return err
	}
	if parsed.Result != "ok" && parsed.Result != "not found" {
		return fmt.Errorf("cloudinary destroy failed: %s", parsed.Result)
	}

	return nil
}

func (c *Cloudinary) postForm(ctx context.Context, endpoint string, fields map[string]string) (*cloudinaryResponse, error) {
	var body strings.Builder
	writer := multipart.NewWriter(&body)
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, fmt.Errorf("write %s field: %w", name, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(body.String()))
	if err != nil {
		return nil, fmt.Errorf("build cloudinary request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cloudinary request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return nil, fmt.Errorf("read cloudinary response: %w", err)
	}

	var parsed cloudinaryResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode cloudinary response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if parsed.Error != nil && parsed.Error.Message != "" {
			return nil, fmt.Errorf("cloudinary call failed: %s", parsed.Error.Message)
		}
		return nil, fmt.Errorf("cloudinary call failed with status %d", resp.StatusCode)
	}

	return &parsed, nil
}

// sign computes the Cloudinary API signature: the signed fields sorted by
// name as a query string, concatenated with the API secret, hashed with
// SHA-1 as their API requires.
func (c *Cloudinary) sign(fields map[string]string) string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, name+"="+fields[name])
	}

	h := sha1.New()
	_, _ = h.Write([]byte(strings.Join(pairs, "&") + c.apiSecret))
	return hex.EncodeToString(h.Sum(nil))
}
