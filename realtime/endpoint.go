package realtime

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"campus_market/config"
)

const defaultPath = "/ws"

// ResolveEndpoint 计算WebSocket地址
// 显式配置优先；否则由页面来源推导，http→ws，https→wss，开发模式下替换前端端口
func ResolveEndpoint(cfg config.RealtimeConfig) (string, error) {
	if cfg.Endpoint != "" {
		return cfg.Endpoint, nil
	}
	origin, err := url.Parse(cfg.PageOrigin)
	if err != nil {
		return "", fmt.Errorf("invalid page origin %q: %w", cfg.PageOrigin, err)
	}
	if origin.Host == "" {
		return "", fmt.Errorf("page origin %q has no host", cfg.PageOrigin)
	}

	scheme := "ws"
	if origin.Scheme == "https" {
		scheme = "wss"
	}

	host, port := origin.Hostname(), origin.Port()
	if cfg.DevMode && port != "" && port == cfg.DevPortFrom {
		port = cfg.DevPortTo
	}
	if port != "" {
		host = net.JoinHostPort(host, port)
	}

	path := cfg.Path
	if path == "" {
		path = defaultPath
	}
	return (&url.URL{Scheme: scheme, Host: host, Path: path}).String(), nil
}

// WithToken 以token查询参数附加令牌
func WithToken(endpoint, token string) string {
	sep := "?"
	if strings.Contains(endpoint, "?") {
		sep = "&"
	}
	return endpoint + sep + "token=" + url.QueryEscape(token)
}
