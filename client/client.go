package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/totegamma/questlog"
	"github.com/totegamma/questlog/internal/domain"
)

const (
	defaultTimeout = 5 * time.Second
	userAgent      = "questlog-client/1.0"
)

type AssignmentView = domain.AssignmentView

// NetworkError reports a transport failure or an unexpected status.
type NetworkError struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *NetworkError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.Status, e.Message)
	default:
		return fmt.Sprintf("%s: status %d", e.Op, e.Status)
	}
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Client talks to the questlog API.
type Client struct {
	client *http.Client
	cache  *cache.Cache
	base   string
}

func New(base string) *Client {
	httpClient := http.Client{
		Timeout: defaultTimeout,
	}
	c := &Client{
		client: &httpClient,
		cache:  cache.New(10*time.Minute, 15*time.Minute),
		base:   strings.TrimRight(base, "/"),
	}
	httpClient.Transport = c
	return c
}

func (c *Client) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", userAgent)
	return http.DefaultTransport.RoundTrip(req)
}

// do sends body as JSON and decodes a successful response into response.
// Statuses listed in accept count as success without decoding.
func (c *Client) do(ctx context.Context, op, method, path string, body, response any, accept ...int) error {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return &NetworkError{Op: op, Err: err}
		}
		reader = bytes.NewReader(raw)
	}

	var req *http.Request
	var err error
	if reader != nil {
		req, err = http.NewRequestWithContext(ctx, method, c.base+path, reader)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, c.base+path, nil)
	}
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	for _, status := range accept {
		if resp.StatusCode == status {
			return nil
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return &NetworkError{Op: op, Status: resp.StatusCode, Message: apiErr.Error}
	}

	if response == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(response); err != nil {
		return &NetworkError{Op: op, Status: resp.StatusCode, Err: err}
	}
	return nil
}

func (c *Client) ListRelations(ctx context.Context, campaignID int64) ([]questlog.Relation, error) {
	var relations []questlog.Relation
	err := c.do(ctx, "list relations", http.MethodGet, "/relations?campaignId="+strconv.FormatInt(campaignID, 10), nil, &relations)
	return relations, err
}

func (c *Client) CreateRelation(ctx context.Context, req questlog.CreateRelationRequest) (questlog.Relation, error) {
	var rel questlog.Relation
	err := c.do(ctx, "create relation", http.MethodPost, "/relations", req, &rel)
	return rel, err
}

func (c *Client) UpdateRelation(ctx context.Context, id int64, req questlog.UpdateRelationRequest) (questlog.Relation, error) {
	var rel questlog.Relation
	err := c.do(ctx, "update relation", http.MethodPut, "/relations/"+strconv.FormatInt(id, 10), req, &rel)
	return rel, err
}

// DeleteRelation treats an already deleted relation as success.
func (c *Client) DeleteRelation(ctx context.Context, id int64) error {
	return c.do(ctx, "delete relation", http.MethodDelete, "/relations/"+strconv.FormatInt(id, 10), nil, nil, http.StatusNotFound)
}

// RelationTypes returns the suggested vocabulary. The list is cached.
func (c *Client) RelationTypes(ctx context.Context) ([]string, error) {
	const cacheKey = "relation-types"
	if x, found := c.cache.Get(cacheKey); found {
		return x.([]string), nil
	}

	var types []string
	if err := c.do(ctx, "relation types", http.MethodGet, "/relations/types", nil, &types); err != nil {
		return nil, err
	}
	c.cache.Set(cacheKey, types, cache.DefaultExpiration)
	return types, nil
}

type SearchParams struct {
	EntityType questlog.EntityType
	Search     string
	CampaignID int64
	Limit      int
}

func (p SearchParams) values() url.Values {
	v := url.Values{}
	v.Set("entityType", string(p.EntityType))
	if p.Search != "" {
		v.Set("search", p.Search)
	}
	if p.CampaignID > 0 {
		v.Set("campaignId", strconv.FormatInt(p.CampaignID, 10))
	}
	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	return v
}

func (c *Client) SearchEntities(ctx context.Context, p SearchParams) ([]questlog.EntityRef, error) {
	var refs []questlog.EntityRef
	err := c.do(ctx, "search entities", http.MethodGet, "/entities/search?"+p.values().Encode(), nil, &refs)
	return refs, err
}

// SearchAssignable searches candidates for magicItemID, leaving out entities
// that already hold it and the keys in exclude.
func (c *Client) SearchAssignable(ctx context.Context, p SearchParams, magicItemID int64, exclude []questlog.EntityKey) ([]questlog.EntityRef, error) {
	v := p.values()
	if magicItemID > 0 {
		v.Set("magicItemId", strconv.FormatInt(magicItemID, 10))
	}
	if len(exclude) > 0 {
		ids := make([]string, 0, len(exclude))
		for _, key := range exclude {
			ids = append(ids, key.String())
		}
		v.Set("exclude", strings.Join(ids, ","))
	}

	var refs []questlog.EntityRef
	err := c.do(ctx, "search assignable", http.MethodGet, "/magic-items/assignable?"+v.Encode(), nil, &refs)
	return refs, err
}

func (c *Client) Assign(ctx context.Context, magicItemID int64, entityType questlog.EntityType, entityIDs []int64) (int, error) {
	var resp questlog.AssignResponse
	err := c.do(
		ctx, "assign", http.MethodPost,
		"/magic-items/"+strconv.FormatInt(magicItemID, 10)+"/assign",
		questlog.AssignRequest{EntityType: entityType, EntityIDs: entityIDs},
		&resp,
	)
	return resp.Created, err
}

func (c *Client) Unassign(ctx context.Context, magicItemID int64, entityType questlog.EntityType, entityID int64) error {
	path := fmt.Sprintf("/magic-items/%d/assign/%s/%d", magicItemID, entityType, entityID)
	return c.do(ctx, "unassign", http.MethodDelete, path, nil, nil)
}

func (c *Client) Assignments(ctx context.Context, magicItemID int64) ([]AssignmentView, error) {
	var views []AssignmentView
	err := c.do(ctx, "assignments", http.MethodGet, "/magic-items/"+strconv.FormatInt(magicItemID, 10)+"/assignments", nil, &views)
	return views, err
}

func (c *Client) Network(ctx context.Context, campaignID int64, includeRelationships bool) (questlog.Graph, error) {
	var graph questlog.Graph
	path := fmt.Sprintf("/campaigns/%d/network?includeRelationships=%t", campaignID, includeRelationships)
	err := c.do(ctx, "network", http.MethodGet, path, nil, &graph)
	return graph, err
}
