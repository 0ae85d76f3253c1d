package utils

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	u "net/url"
	"strings"
)

const UserAgent = "sitewise-app"

func Request(ctx context.Context, client *http.Client, method, url string, headers, params *map[string]string, body *[]byte) (*http.Response, error) {
	if client == nil {
		client = http.DefaultClient
	}

	url = addParamsToURL(url, params)

	var req *http.Request
	var err error

	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, url, bytes.NewBuffer(*body))
	} else {
		req, err = http.NewRequestWithContext(ctx, method, url, nil)
	}

	if err != nil {
		return nil, fmt.Errorf("[REQUEST] building %s %s: %w", method, url, err)
	}

	addHeadersToRequest(req, headers)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}

	return resp, nil
}

func addParamsToURL(url string, params *map[string]string) string {
	if params != nil && len(*params) > 0 {
		parameters := u.Values{}

		for key, value := range *params {
			parameters.Add(key, value)
		}

		separator := "?"
		if strings.Contains(url, "?") {
			separator = "&"
		}

		url = url + separator + parameters.Encode()
	}

	return url
}

func addHeadersToRequest(req *http.Request, headers *map[string]string) {
	req.Header.Set("Content-Type", "application/json")

	req.Header.Set("Accept", "application/json")

	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")

	req.Header.Set("User-Agent", UserAgent)

	if headers != nil && len(*headers) > 0 {
		for key, value := range *headers {
			req.Header.Set(key, value)
		}
	}
}
