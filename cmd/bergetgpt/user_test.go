package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mickekring/berget-gpt/internal/auth"
	"github.com/mickekring/berget-gpt/internal/config"
)

func TestUserCreate_HashesPasswordBeforeStore(t *testing.T) {
	var stored map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/db/data/v1/BergetGPT/users", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&stored))
		stored["Id"] = 1
		json.NewEncoder(w).Encode(stored)
	}))
	t.Cleanup(srv.Close)

	cfg = &config.Config{}
	cfg.Store.BaseURL = srv.URL
	cfg.Store.Token = "token"
	cfg.Store.Base = "BergetGPT"

	userCreatePassword = "hunter2"
	userCreateEmail = "micke@example.com"
	t.Cleanup(func() {
		userCreatePassword = ""
		userCreateEmail = ""
	})

	require.NoError(t, userCreateCmd.RunE(userCreateCmd, []string{"micke"}))

	hash, _ := stored["password_hash"].(string)
	require.NotEmpty(t, hash)
	assert.NotEqual(t, "hunter2", hash)
	assert.True(t, auth.CheckPassword(hash, "hunter2"))
	assert.Equal(t, "micke", stored["username"])
	assert.Equal(t, "light", stored["theme"])
}

func TestUserCreate_RequiresPassword(t *testing.T) {
	cfg = &config.Config{}
	userCreatePassword = ""

	err := userCreateCmd.RunE(userCreateCmd, []string{"micke"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--password")
}
