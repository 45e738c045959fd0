// Package httpdetect provides a detfusion.Adapter that runs detection on a
// hosted inference service over HTTP.
package httpdetect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image/color"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/swdee/go-detfusion"
	"github.com/swdee/go-detfusion/preprocess"
	"github.com/swdee/go-detfusion/result"
	"gocv.io/x/gocv"
)

const (
	// DefaultTimeout is the time allowed for a single inference request
	DefaultTimeout = 30 * time.Second
	// DefaultJPEGQuality is the quality regions are encoded at
	DefaultJPEGQuality = 90
	// UserAgent is sent with every request
	UserAgent = "go-detfusion/httpdetect"
	// maxResponseSize limits the response body read
	maxResponseSize = 8 << 20
)

// letterboxColour pads letterboxed regions
var letterboxColour = color.RGBA{R: 114, G: 114, B: 114, A: 255}

// Prediction is a single object returned by the inference service.  Boxes
// are given by their centre point and size in pixels of the uploaded image.
type Prediction struct {
	X          float32 `json:"x"`
	Y          float32 `json:"y"`
	Width      float32 `json:"width"`
	Height     float32 `json:"height"`
	Confidence float32 `json:"confidence"`
	Class      string  `json:"class"`
	ClassID    int     `json:"class_id"`
}

// Response is the body returned by the inference service
type Response struct {
	Predictions []Prediction `json:"predictions"`
}

// Corners converts the prediction from centre format into a corner format box
func (p Prediction) Corners() result.Box {
	return result.Box{
		X1: p.X - p.Width/2,
		Y1: p.Y - p.Height/2,
		X2: p.X + p.Width/2,
		Y2: p.Y + p.Height/2,
	}
}

// Client is a detfusion.Adapter that uploads each region as a JPEG image to
// an inference endpoint.  The detector variant and confidence threshold are
// sent as the "model" and "confidence" query parameters.
type Client struct {
	endpoint *url.URL
	apiKey   string
	quality  int
	http     *http.Client
	// inputW and inputH are the letterbox size regions are scaled to before
	// upload, zero to upload regions at their own size
	inputW int
	inputH int
}

// Option configures a Client
type Option func(*Client)

// WithAPIKey sets the API key sent as the "api_key" query parameter
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithHTTPClient sets the HTTP client used for requests
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithJPEGQuality sets the JPEG quality (1 to 100) regions are encoded at
func WithJPEGQuality(q int) Option {
	return func(c *Client) {
		c.quality = q
	}
}

// WithInputSize letterboxes each region to width x height before upload,
// for services that expect the detector's input size.  Predictions are
// mapped back to the region's coordinates.
func WithInputSize(width, height int) Option {
	return func(c *Client) {
		c.inputW = width
		c.inputH = height
	}
}

// New returns a Client for the given inference endpoint URL
func New(endpoint string, opts ...Option) (*Client, error) {

	u, err := url.Parse(endpoint)

	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: invalid endpoint %q", detfusion.ErrConfiguration, endpoint)
	}

	c := &Client{
		endpoint: u,
		quality:  DefaultJPEGQuality,
		http: &http.Client{
			Timeout: DefaultTimeout,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.inputW < 0 || c.inputH < 0 || (c.inputW == 0) != (c.inputH == 0) {
		return nil, fmt.Errorf("%w: input size %dx%d", detfusion.ErrConfiguration, c.inputW, c.inputH)
	}

	if c.quality < 1 || c.quality > 100 {
		return nil, fmt.Errorf("%w: jpeg quality %d outside 1 to 100",
			detfusion.ErrConfiguration, c.quality)
	}

	return c, nil
}

// Detect uploads the region and returns the predictions at or above the
// confidence threshold
func (c *Client) Detect(ctx context.Context, region gocv.Mat, variant string,
	threshold float32) ([]result.RawDetection, error) {

	if region.Empty() {
		return nil, fmt.Errorf("%w: empty region", detfusion.ErrAdapterInference)
	}

	upload := region

	var lb *preprocess.Letterbox

	if c.inputW > 0 {
		var err error
		lb, err = preprocess.NewLetterbox(region.Cols(), region.Rows(), c.inputW, c.inputH)

		if err != nil {
			return nil, fmt.Errorf("%w: %w", detfusion.ErrAdapterInference, err)
		}

		defer lb.Close()

		upload = gocv.NewMat()
		defer upload.Close()

		lb.Resize(region, &upload, letterboxColour)
	}

	img, err := c.encode(upload)

	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.requestURL(variant, threshold),
		bytes.NewReader(img))

	if err != nil {
		return nil, fmt.Errorf("%w: error creating request: %w", detfusion.ErrAdapterInference, err)
	}

	req.Header.Set("Content-Type", "image/jpeg")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", UserAgent)

	resp, err := c.http.Do(req)

	if err != nil {
		return nil, fmt.Errorf("%w: error sending request: %w", detfusion.ErrAdapterInference, err)
	}

	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))

	if err != nil {
		return nil, fmt.Errorf("%w: error reading response body: %w", detfusion.ErrAdapterInference, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp.StatusCode, variant)
	}

	var res Response

	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("%w: error unmarshaling predictions: %w", detfusion.ErrAdapterInference, err)
	}

	dets := make([]result.RawDetection, 0, len(res.Predictions))

	for _, p := range res.Predictions {
		if p.Confidence < threshold {
			continue
		}

		box := p.Corners()

		if lb != nil {
			box = lb.ToSource(box)
		}

		dets = append(dets, result.RawDetection{
			Box:         box,
			Probability: p.Confidence,
			Class:       p.ClassID,
		})
	}

	return dets, nil
}

// encode the region as a JPEG image
func (c *Client) encode(region gocv.Mat) ([]byte, error) {

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, region,
		[]int{int(gocv.IMWriteJpegQuality), c.quality})

	if err != nil {
		return nil, fmt.Errorf("%w: error encoding region: %w", detfusion.ErrAdapterInference, err)
	}

	defer buf.Close()

	// copy out of the native buffer before it is freed
	img := make([]byte, buf.Len())
	copy(img, buf.GetBytes())

	return img, nil
}

// requestURL returns the endpoint with the query parameters for the request
func (c *Client) requestURL(variant string, threshold float32) string {

	u := *c.endpoint
	q := u.Query()
	q.Set("model", variant)
	q.Set("confidence", strconv.FormatFloat(float64(threshold), 'f', -1, 32))

	if c.apiKey != "" {
		q.Set("api_key", c.apiKey)
	}

	u.RawQuery = q.Encode()

	return u.String()
}

// statusError maps a non-200 response status to an adapter error.  Responses
// saying the model can not be used at all make the adapter unavailable.
func statusError(code int, variant string) error {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return fmt.Errorf("%w: model %q: received %d response",
			detfusion.ErrAdapterUnavailable, variant, code)
	}

	return fmt.Errorf("%w: received non-200 response: %d", detfusion.ErrAdapterInference, code)
}
