package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/barrage-archive/barrage/iox"
)

// DefaultInfoURL is the token-issuance endpoint. Overridable for tests.
const DefaultInfoURL = "https://api.live.bilibili.com/xlive/web-room/v1/index/getDanmuInfo"

// chatHost is one candidate TCP endpoint from the token response.
type chatHost struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// danmuInfo is the token response subset the handshake consumes.
type danmuInfo struct {
	Code    int64  `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Token    string     `json:"token"`
		HostList []chatHost `json:"host_list"`
	} `json:"data"`
}

// fetchDanmuInfo obtains the session token and candidate host list,
// authenticating with the session cookie. Failure here is fatal for
// session start.
func (s *Session) fetchDanmuInfo(ctx context.Context) (*danmuInfo, error) {
	url := fmt.Sprintf("%s?id=%d&type=0", s.infoURL, s.roomID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("session: build token request: %w", err)
	}
	req.Header.Set("Cookie", s.creds.Cookie)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("session: token fetch: %w", err)
	}
	defer iox.DiscardClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("session: token fetch: unexpected status %d", resp.StatusCode)
	}

	var info danmuInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("session: decode token response: %w", err)
	}
	if info.Code != 0 {
		return nil, fmt.Errorf("session: token endpoint refused: code=%d message=%q", info.Code, info.Message)
	}
	if len(info.Data.HostList) == 0 {
		return nil, fmt.Errorf("session: token response carries no chat hosts")
	}

	return &info, nil
}
