package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/user-service/internal/config"
	"github.com/iliyamo/user-service/internal/logging"
	"github.com/iliyamo/user-service/internal/mail"
	"github.com/iliyamo/user-service/internal/queue"
	"github.com/iliyamo/user-service/internal/repository"
)

func TestNewSender(t *testing.T) {
	cfg := config.Config{}

	cfg.Mail.Transport = config.MailLog
	assert.IsType(t, mail.LogSender{}, newSender(cfg, logging.Discard()))

	cfg.Mail.Transport = config.MailSMTP
	assert.IsType(t, &mail.SMTPSender{}, newSender(cfg, logging.Discard()))

	cfg.Mail.Transport = config.MailAMQP
	assert.IsType(t, &queue.Publisher{}, newSender(cfg, logging.Discard()))
}

func TestOpenStore_Memory(t *testing.T) {
	store, db, err := openStore(context.Background(), config.Config{StoreDriver: config.StoreMemory}, logging.Discard())
	require.NoError(t, err)
	assert.Nil(t, db)
	assert.IsType(t, &repository.MemoryAccountRepo{}, store)
}

func TestEvictor_NoRedisIsNoop(t *testing.T) {
	evict := evictor(config.Config{}, nil, logging.Discard())
	assert.NotPanics(t, func() { evict(context.Background(), "u1") })
}
