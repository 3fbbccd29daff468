// Package facebook reads campaign-level spend from the Graph API ads insights edge.
package facebook

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/jekabolt/growth-dashboard/internal/entity"
	gerr "github.com/jekabolt/growth-dashboard/internal/errors"
	"github.com/shopspring/decimal"
)

const (
	defaultBaseURL    = "https://graph.facebook.com"
	defaultAPIVersion = "v19.0"
	defaultMaxPages   = 50

	insightFields = "campaign_name,spend,impressions,clicks"
)

type Config struct {
	AccessToken string        `mapstructure:"access_token"`
	BaseURL     string        `mapstructure:"base_url"`
	APIVersion  string        `mapstructure:"api_version"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxPages    int           `mapstructure:"max_pages"`
}

type Client struct {
	c   *Config
	cli *resty.Client
}

func New(c *Config) *Client {
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.APIVersion == "" {
		c.APIVersion = defaultAPIVersion
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxPages <= 0 {
		c.MaxPages = defaultMaxPages
	}

	cli := resty.New()
	cli.SetBaseURL(strings.TrimRight(c.BaseURL, "/"))
	cli.SetAuthToken(c.AccessToken)
	cli.SetTimeout(c.Timeout)

	return &Client{c: c, cli: cli}
}

// NormalizeAccountID adds the act_ prefix the insights edge expects.
func NormalizeAccountID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return ""
	}
	return "act_" + strings.TrimPrefix(id, "act_")
}

type timeRange struct {
	Since string `json:"since"`
	Until string `json:"until"`
}

type insightRow struct {
	CampaignName string `json:"campaign_name"`
	Spend        string `json:"spend"`
	Impressions  string `json:"impressions"`
	Clicks       string `json:"clicks"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
}

type insightsResponse struct {
	Data   []insightRow `json:"data"`
	Paging struct {
		Next string `json:"next"`
	} `json:"paging"`
	Error *apiError `json:"error"`
}

// CampaignInsights returns per-campaign spend in the ad account's currency for
// the inclusive date range [since, until], following every result page.
func (c *Client) CampaignInsights(ctx context.Context, accountID string, since, until time.Time) ([]entity.Campaign, error) {
	account := NormalizeAccountID(accountID)
	if account == "" || c.c.AccessToken == "" {
		return nil, gerr.ErrMissingCredentials
	}

	tr, err := json.Marshal(timeRange{
		Since: since.UTC().Format("2006-01-02"),
		Until: until.UTC().Format("2006-01-02"),
	})
	if err != nil {
		return nil, fmt.Errorf("could not marshal time range: %w", err)
	}

	req := c.cli.R().SetContext(ctx).SetQueryParams(map[string]string{
		"level":      "campaign",
		"fields":     insightFields,
		"time_range": string(tr),
	})
	url := fmt.Sprintf("/%s/%s/insights", c.c.APIVersion, account)

	var campaigns []entity.Campaign
	for page := 0; url != ""; page++ {
		if page >= c.c.MaxPages {
			return nil, fmt.Errorf("%w: more than %d insight pages", gerr.ErrAdsAPI, c.c.MaxPages)
		}

		resp, err := req.Get(url)
		if err != nil {
			return nil, fmt.Errorf("could not get insights: %w", err)
		}

		var res insightsResponse
		if err := json.Unmarshal(resp.Body(), &res); err != nil {
			return nil, fmt.Errorf("could not unmarshal insights: %w : body: %v", err, resp.String())
		}
		if res.Error != nil {
			return nil, fmt.Errorf("%w: %s", gerr.ErrAdsAPI, res.Error.Message)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("%w: status %d", gerr.ErrAdsAPI, resp.StatusCode())
		}

		for _, row := range res.Data {
			cmp, err := row.campaign()
			if err != nil {
				return nil, err
			}
			campaigns = append(campaigns, cmp)
		}

		// next already carries every query parameter
		url = res.Paging.Next
		req = c.cli.R().SetContext(ctx)
	}
	return campaigns, nil
}

func (r insightRow) campaign() (entity.Campaign, error) {
	spend := decimal.Zero
	if r.Spend != "" {
		var err error
		spend, err = decimal.NewFromString(r.Spend)
		if err != nil {
			return entity.Campaign{}, fmt.Errorf("%w: bad spend %q for campaign %q", gerr.ErrAdsAPI, r.Spend, r.CampaignName)
		}
	}
	return entity.Campaign{
		Name:        r.CampaignName,
		Spend:       spend,
		Impressions: parseInt(r.Impressions),
		Clicks:      parseInt(r.Clicks),
	}, nil
}

func parseInt(s string) int {
	v, _ := strconv.Atoi(s)
	return v
}
