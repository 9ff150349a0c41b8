package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/cuongthieu-itme/product-workflow-sub002/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receiveEvent(t *testing.T, c *Client) *TransitionEvent {
	t.Helper()
	select {
	case message := <-c.Send:
		var event TransitionEvent
		require.NoError(t, json.Unmarshal(message, &event))
		return &event
	case <-time.After(time.Second):
		t.Fatal("no event received")
		return nil
	}
}

func assertNoEvent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case message := <-c.Send:
		t.Fatalf("unexpected event: %s", message)
	case <-time.After(50 * time.Millisecond):
	}
}

// TestHubRegisterUnregister 测试客户端注册与注销
func TestHubRegisterUnregister(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := NewClient("c1", "user-001", "", hub, nil)
	hub.Register <- client
	require.Eventually(t, func() bool { return hub.GetClientCount() == 1 }, time.Second, 10*time.Millisecond)
	assert.True(t, hub.HasClient("c1"))

	hub.Unregister <- client
	require.Eventually(t, func() bool { return hub.GetClientCount() == 0 }, time.Second, 10*time.Millisecond)
	assert.False(t, hub.HasClient("c1"))
}

// TestNotifyTransitionFiltering 测试按请求 ID 过滤推送
func TestNotifyTransitionFiltering(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	all := NewClient("c-all", "user-001", "", hub, nil)
	mine := NewClient("c-mine", "user-002", "req-1", hub, nil)
	other := NewClient("c-other", "user-003", "req-2", hub, nil)
	for _, c := range []*Client{all, mine, other} {
		hub.Register <- c
	}
	require.Eventually(t, func() bool { return hub.GetClientCount() == 3 }, time.Second, 10*time.Millisecond)

	hub.NotifyTransition("req-1", workflow.ActionCompleteStep, workflow.RequestStatusInProgress)

	// 订阅全部与订阅 req-1 的客户端收到事件
	event := receiveEvent(t, all)
	assert.Equal(t, "req-1", event.RequestID)
	assert.Equal(t, string(workflow.ActionCompleteStep), event.Action)
	assert.Equal(t, string(workflow.RequestStatusInProgress), event.Status)

	event = receiveEvent(t, mine)
	assert.Equal(t, "req-1", event.RequestID)

	// 订阅其他请求的客户端不收事件
	assertNoEvent(t, other)
}

// TestBroadcastToUser 测试按用户定向广播
func TestBroadcastToUser(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	target := NewClient("c1", "user-001", "", hub, nil)
	bystander := NewClient("c2", "user-002", "", hub, nil)
	hub.Register <- target
	hub.Register <- bystander
	require.Eventually(t, func() bool { return hub.GetClientCount() == 2 }, time.Second, 10*time.Millisecond)

	hub.BroadcastToUser("user-001", []byte(`{"hello":"world"}`))

	select {
	case message := <-target.Send:
		assert.JSONEq(t, `{"hello":"world"}`, string(message))
	case <-time.After(time.Second):
		t.Fatal("target did not receive message")
	}
	assertNoEvent(t, bystander)
}
