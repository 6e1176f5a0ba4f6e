package main

import (
	"context"
	"testing"

	"github.com/parleyhq/parley/llm"
)

func TestNewClientFallsBackToMock(t *testing.T) {
	client, err := newClient(context.Background(), "", "test-model")
	if err != nil {
		t.Fatalf("newClient returned error: %v", err)
	}
	mock, ok := client.(*llm.MockClient)
	if !ok {
		t.Fatalf("newClient returned %T, want *llm.MockClient", client)
	}
	if mock.DefaultModel() != "test-model" {
		t.Errorf("DefaultModel() = %q, want test-model", mock.DefaultModel())
	}
}

func TestNewClientMockWithoutModel(t *testing.T) {
	client, err := newClient(context.Background(), "unheard-of-provider", "")
	if err != nil {
		t.Fatalf("newClient returned error: %v", err)
	}
	if client.DefaultModel() != "mock-model" {
		t.Errorf("DefaultModel() = %q, want mock-model", client.DefaultModel())
	}
}
