package db

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedactDSN(t *testing.T) {
	assert.Equal(t, "postgres://***@db:5432/app", redactDSN("postgres://user:secret@db:5432/app"))
	assert.Equal(t, "host=db dbname=app", redactDSN("host=db dbname=app"))
}

func TestRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	cli, err := Redis(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	require.NotNil(t, cli)
	defer cli.Close()
	assert.Equal(t, mr.Addr(), cli.Options().Addr)

	cli, err = Redis(context.Background(), "")
	assert.NoError(t, err)
	assert.Nil(t, cli)

	_, err = Redis(context.Background(), "not-a-url")
	assert.Error(t, err)
}

func TestPostgresEmptyDSN(t *testing.T) {
	pool, err := Postgres(context.Background(), "")
	assert.NoError(t, err)
	assert.Nil(t, pool)
}
