package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/samurais-network/shiro/util"

	"github.com/carlmjohnson/versioninfo"
	"golang.org/x/time/rate"
)

// HTTPDetector talks to an external inference service (NudeNet-style):
// multipart image upload, JSON detections back.
type HTTPDetector struct {
	Client  *http.Client
	Host    string
	Token   string
	Limiter *rate.Limiter
}

func NewHTTPDetector(host, token string, reqPerSec int) *HTTPDetector {
	var lim *rate.Limiter
	if reqPerSec > 0 {
		lim = rate.NewLimiter(rate.Limit(reqPerSec), 1)
	}
	return &HTTPDetector{
		Client:  util.RobustHTTPClient(),
		Host:    host,
		Token:   token,
		Limiter: lim,
	}
}

type detectResp struct {
	Detections []Detection `json:"detections"`
}

func (d *HTTPDetector) Detect(ctx context.Context, img []byte) ([]Detection, error) {

	slog.Debug("sending frame to inference service", "host", d.Host, "size", len(img))

	if d.Limiter != nil {
		if err := d.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	// generic HTTP form file upload, then parse the response JSON
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "frame.jpg")
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(img); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.Host+"/detect", body)
	if err != nil {
		return nil, err
	}
	req.Header.Add("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "shiro/"+versioninfo.Short())
	if d.Token != "" {
		req.Header.Set("Authorization", "Bearer "+d.Token)
	}

	start := time.Now()
	res, err := d.Client.Do(req)
	detectAPIDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		detectAPICount.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("inference request failed: %w", err)
	}
	defer res.Body.Close()

	detectAPICount.WithLabelValues(fmt.Sprint(res.StatusCode)).Inc()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inference request failed statusCode=%d", res.StatusCode)
	}

	respBytes, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read inference resp body: %w", err)
	}

	var respObj detectResp
	if err := json.Unmarshal(respBytes, &respObj); err != nil {
		return nil, fmt.Errorf("failed to parse inference resp JSON: %w", err)
	}
	return respObj.Detections, nil
}

// Healthy probes the inference service's health endpoint.
func (d *HTTPDetector) Healthy(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.Host+"/health", nil)
	if err != nil {
		return err
	}
	res, err := d.Client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("inference service unhealthy statusCode=%d", res.StatusCode)
	}
	return nil
}
