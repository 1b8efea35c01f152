package api

import (
	"context"

	"campus_market/model"
)

// DiagnosticsAPI 诊断接口
type DiagnosticsAPI struct {
	client *Client
}

// NewDiagnosticsAPI 创建诊断接口
func NewDiagnosticsAPI(client *Client) *DiagnosticsAPI {
	return &DiagnosticsAPI{client: client}
}

// KafkaOrderEvent POST /diagnostics/kafka/order-events，让服务端向订单主题发送一条测试事件
func (d *DiagnosticsAPI) KafkaOrderEvent(ctx context.Context, req model.KafkaDiagnosticsRequest) (model.KafkaDiagnosticsResponse, error) {
	var resp model.KafkaDiagnosticsResponse
	err := d.client.Post(ctx, "/diagnostics/kafka/order-events", req, &resp)
	return resp, err
}
