/*
 * Copyright 2025 SREDiag Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFromEnv(t *testing.T) {
	t.Setenv(EnvLevel, "")
	assert.Equal(t, LevelWarn, LevelFromEnv(LevelWarn))

	t.Setenv(EnvLevel, "1")
	assert.Equal(t, LevelDebug, LevelFromEnv(LevelWarn))

	t.Setenv(EnvLevel, "9")
	assert.Equal(t, LevelWarn, LevelFromEnv(LevelWarn))

	t.Setenv(EnvLevel, "loud")
	assert.Equal(t, LevelInfo, LevelFromEnv(LevelInfo))
}

func TestNewWritesConsole(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: LevelInfo, Out: &buf})
	l.Info("handling status")
	l.Debug("hidden")
	_ = l.Sync()

	assert.Contains(t, buf.String(), "handling status")
	assert.NotContains(t, buf.String(), "hidden")
}

func TestNewNoPrint(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: LevelNoPrint, Out: &buf})
	l.Error("dropped")
	assert.Empty(t, buf.String())
}

func TestNewWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "host.log")
	var buf bytes.Buffer
	l := New(Options{Level: LevelInfo, Out: &buf, File: path})
	l.Info("to file")
	_ = l.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"to file"`)
}
