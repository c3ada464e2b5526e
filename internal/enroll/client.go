package enroll

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/rainbow59216/snatcher/pkg/config"
)

// Remote endpoints, relative to a host's base URL. The gnmkdm parameter is a
// fixed module id on the remote system.
const (
	indexPath     = "/xsxk/zzxkyzb_cxZzxkYzbIndex.html?gnmkdm=N253512&layout=default"
	sectionsPath  = "/xsxk/zzxkyzbjk_cxJxbWithKchZzxkYzb.html?gnmkdm=N253512"
	submitPath    = "/xsxk/zzxkyzbjk_xkBcZyZzxkYzb.html?gnmkdm=N253512"
	seatStockPath = "/xsxk/zzxkyzb_cxZzxkYzbPartDisplay.html?gnmkdm=N253512"
)

// Protocol step indices used in attempt logs.
const (
	StepFoundCourse = 0
	StepCourseID    = 1
	StepContextID   = 2
	StepSectionIDs  = 3
	StepSubmit      = 4
)

const sessionCookieName = "JSESSIONID"

// Attempt binds one protocol run to a backend host and its session cookie.
type Attempt struct {
	BaseURL string
	Host    string
	Cookie  string
}

// Context is the resolved selection context: the opaque window id plus any
// auxiliary constants the category scraped off the index page.
type Context struct {
	ID  string
	Aux url.Values
}

// Section is one candidate teaching class returned by the resolve endpoint.
type Section struct {
	SectionID          string `json:"jxb_id"`
	CommittedSectionID string `json:"do_jxb_id"`
}

// SectionQuery carries the form inputs of the resolve step.
type SectionQuery struct {
	Cohort          string
	CourseID        string
	ContextID       string
	PinnedSectionID string
	Aux             url.Values
}

type submitResponse struct {
	Flag string `json:"flag"`
	Msg  string `json:"msg"`
}

// SeatCount is one section's remaining-enrollment snapshot.
type SeatCount struct {
	SectionID string `json:"jxb_id"`
	Enrolled  string `json:"yxzrs"`
}

// Client drives the three-step remote selection protocol over one HTTP
// session. It is stateless across calls; intermediate ids travel with the
// caller.
type Client struct {
	http   *http.Client
	cfg    config.EnrollConfig
	logger *zap.Logger
}

// NewClient builds a protocol client with the configured request timeout.
func NewClient(cfg config.EnrollConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		http:   &http.Client{Timeout: cfg.RequestTimeout},
		cfg:    cfg,
		logger: logger,
	}
}

// CohortOf derives the cohort (enrollment-year) id from a student number.
func CohortOf(username string) string {
	if len(username) < 2 {
		return ""
	}
	return "20" + username[:2]
}

// ResolveContext fetches the index page and extracts the category's context
// id together with its auxiliary form constants. Step 2 of the protocol.
func (c *Client) ResolveContext(ctx context.Context, att Attempt, cat Category) (Context, *StepError) {
	html, err := c.get(ctx, att, att.BaseURL+indexPath)
	if err != nil {
		return Context{}, wrapNetError(StepContextID, ReasonContextResolution, err)
	}

	id, ok := cat.ExtractContextID(html)
	if !ok {
		return Context{}, stepFailure(StepContextID, FailProtocol, ReasonContextResolution, nil)
	}
	return Context{ID: id, Aux: cat.AuxFields(html)}, nil
}

// ResolveSectionIDs posts the resolve form and picks the teaching class to
// commit. Step 3 of the protocol. A pinned section id must match exactly;
// without a pin exactly one candidate is required.
func (c *Client) ResolveSectionIDs(ctx context.Context, att Attempt, cat Category, q SectionQuery) (string, *StepError) {
	form := url.Values{}
	form.Set("bklx_id", "0")
	form.Set("njdm_id", q.Cohort)
	form.Set("xkxnm", strconv.Itoa(c.cfg.Year))
	form.Set("xkxqm", strconv.Itoa(c.cfg.Term))
	form.Set("kklxdm", cat.Code())
	form.Set("kch_id", q.CourseID)
	form.Set("xkkz_id", q.ContextID)
	for name, values := range q.Aux {
		for _, v := range values {
			form.Add(name, v)
		}
	}

	body, err := c.postForm(ctx, att, att.BaseURL+sectionsPath, form)
	if err != nil {
		return "", wrapNetError(StepSectionIDs, ReasonFormDataInvalid, err)
	}

	trimmed := strings.TrimSpace(body)
	var sections []Section
	if err := json.Unmarshal([]byte(trimmed), &sections); err != nil {
		// The endpoint answers a bare "0" when the request shape is wrong.
		var scalar string
		if json.Unmarshal([]byte(trimmed), &scalar) == nil {
			return "", stepFailure(StepSectionIDs, FailProtocol, ReasonIllegalRequest, nil)
		}
		return "", stepFailure(StepSectionIDs, FailProtocol, ReasonDecodeError, err)
	}

	if len(sections) == 0 {
		return "", stepFailure(StepSectionIDs, FailProtocol, ReasonFormDataInvalid, nil)
	}

	if q.PinnedSectionID != "" {
		for _, s := range sections {
			if s.SectionID == q.PinnedSectionID {
				return s.CommittedSectionID, nil
			}
		}
		return "", stepFailure(StepSectionIDs, FailProtocol, ReasonNoMatchingSection, nil)
	}

	if len(sections) > 1 {
		return "", stepFailure(StepSectionIDs, FailProtocol, ReasonNoMatchingSection,
			fmt.Errorf("%d candidates without a pinned section", len(sections)))
	}
	return sections[0].CommittedSectionID, nil
}

// SubmitSelection commits the chosen section. Step 4 of the protocol. A
// non-"1" flag is the server's final word and carries its message.
func (c *Client) SubmitSelection(ctx context.Context, att Attempt, courseID, sectionIDs string) *StepError {
	form := url.Values{}
	form.Set("kch_id", courseID)
	form.Set("jxb_ids", sectionIDs)
	form.Set("qz", "0")

	body, err := c.postForm(ctx, att, att.BaseURL+submitPath, form)
	if err != nil {
		return wrapNetError(StepSubmit, ReasonDecodeError, err)
	}

	var result submitResponse
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		return stepFailure(StepSubmit, FailProtocol, ReasonDecodeError, err)
	}

	if result.Flag != "1" {
		return stepFailure(StepSubmit, FailRejected, result.Msg, nil)
	}
	return nil
}

// FetchSeatCounts pages through the category display endpoint and returns the
// enrolled-count snapshot per section. Consumed by the seat watcher, not by
// the selection path.
func (c *Client) FetchSeatCounts(ctx context.Context, att Attempt, cat Category, cohort string, pageSize int) ([]SeatCount, error) {
	if pageSize <= 0 {
		pageSize = 500
	}

	form := url.Values{}
	form.Set("bklx_id", "0")
	form.Set("xkxnm", strconv.Itoa(c.cfg.Year))
	form.Set("xkxqm", strconv.Itoa(c.cfg.Term))
	form.Set("kklxdm", cat.Code())
	form.Set("kspage", "1")
	form.Set("jspage", strconv.Itoa(pageSize))
	if cat.Code() == (PhysicalEducation{}).Code() {
		form.Set("njdm_id", cohort)
		for name, values := range cat.AuxFields("") {
			for _, v := range values {
				form.Add(name, v)
			}
		}
	}

	body, err := c.postForm(ctx, att, att.BaseURL+seatStockPath, form)
	if err != nil {
		return nil, fmt.Errorf("fetch seat counts: %w", err)
	}

	var payload struct {
		TmpList []SeatCount `json:"tmpList"`
	}
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return nil, fmt.Errorf("decode seat counts: %w", err)
	}
	return payload.TmpList, nil
}

func (c *Client) get(ctx context.Context, att Attempt, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	c.bindSession(req, att)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (c *Client) postForm(ctx context.Context, att Attempt, rawURL string, form url.Values) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	c.bindSession(req, att)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (c *Client) bindSession(req *http.Request, att Attempt) {
	if att.Cookie != "" {
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: att.Cookie})
	}
}
