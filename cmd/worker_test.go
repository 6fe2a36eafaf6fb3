package cmd

import (
	"context"
	"testing"

	"github.com/contactsbook/apiserver/internal/mq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestVerificationHandler(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	handler := verificationHandler(zap.New(core))

	err := handler(context.Background(), mq.Message{
		ID:   "m1",
		Data: []byte(`{"email":"a@b.com","verificationToken":"t","verifyURL":"http://api.test/users/verify/t"}`),
	})
	require.NoError(t, err)

	err = handler(context.Background(), mq.Message{ID: "m2", Data: []byte("{")})
	require.NoError(t, err)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "verification link", entries[0].Message)
	assert.Equal(t, "http://api.test/users/verify/t", entries[0].ContextMap()["link"])
	assert.Equal(t, "drop malformed verification event", entries[1].Message)
}
