// Package lifecycle keeps the host's table of loaded plugins and the
// capability context each one was loaded with.
package lifecycle

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	cmap "github.com/orcaman/concurrent-map/v2"
	"go.uber.org/zap"

	"github.com/srediag/plugin-status/api"
	"github.com/srediag/plugin-status/pkg/audit"
	"github.com/srediag/plugin-status/pkg/status"
)

var (
	ErrPluginNotFound = errors.New("plugin not found")
	ErrPluginExists   = errors.New("plugin already loaded")
)

// Options tunes plugin loading.
type Options struct {
	// LoadRetries is how many times a failed Load is retried. Errors wrapped
	// with backoff.Permanent are never retried.
	LoadRetries   uint64
	RetryInterval time.Duration
}

// Instance is a plugin together with the capability context it was given.
type Instance struct {
	name   string
	plugin api.Plugin
	slot   status.Slot
	stream *audit.Stream

	mu      sync.Mutex
	state   api.State
	loadErr error
}

var _ api.Host = (*Instance)(nil)

// Log implements api.Host.
func (i *Instance) Log(message string) {
	i.stream.Append(i.name, message)
}

// SetStatusHandler implements api.Host.
func (i *Instance) SetStatusHandler(h api.StatusHandler) {
	i.slot.Replace(h)
}

func (i *Instance) Name() string { return i.name }

// Slot is the plugin's status handler slot.
func (i *Instance) Slot() *status.Slot { return &i.slot }

// State returns the lifecycle state and the last load error.
func (i *Instance) State() (api.State, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state, i.loadErr
}

func (i *Instance) setState(s api.State, err error) {
	i.mu.Lock()
	i.state = s
	i.loadErr = err
	i.mu.Unlock()
}

// Manager implements api.Lifecycle.
type Manager struct {
	plugins cmap.ConcurrentMap[string, *Instance]
	stream  *audit.Stream
	opts    Options
	logger  *zap.Logger
}

var _ api.Lifecycle = (*Manager)(nil)

func NewManager(stream *audit.Stream, logger *zap.Logger, opts Options) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		plugins: cmap.New[*Instance](),
		stream:  stream,
		opts:    opts,
		logger:  logger,
	}
}

// StartPlugin loads p under p.Name(). A plugin whose Load keeps failing stays
// in the table in the failed state.
func (m *Manager) StartPlugin(p api.Plugin) error {
	name := p.Name()
	inst := &Instance{name: name, plugin: p, stream: m.stream, state: api.StateStopped}
	if !m.plugins.SetIfAbsent(name, inst) {
		return fmt.Errorf("start %s: %w", name, ErrPluginExists)
	}
	return m.load(inst)
}

func (m *Manager) load(inst *Instance) error {
	attempt := 0
	op := func() error {
		attempt++
		inst.slot.Reset()
		err := inst.plugin.Load(inst)
		if err != nil {
			m.logger.Warn("plugin load failed",
				zap.String("plugin", inst.name), zap.Int("attempt", attempt), zap.Error(err))
		}
		return err
	}
	b := backoff.WithMaxRetries(backoff.NewConstantBackOff(m.opts.RetryInterval), m.opts.LoadRetries)
	if err := backoff.Retry(op, b); err != nil {
		inst.setState(api.StateFailed, err)
		return fmt.Errorf("load %s: %w", inst.name, err)
	}
	inst.setState(api.StateLoaded, nil)
	m.logger.Info("plugin loaded", zap.String("plugin", inst.name))
	return nil
}

// StopPlugin unloads the plugin and removes it from the table.
func (m *Manager) StopPlugin(pluginID string) error {
	inst, ok := m.plugins.Get(pluginID)
	if !ok {
		return fmt.Errorf("stop %s: %w", pluginID, ErrPluginNotFound)
	}
	m.plugins.Remove(pluginID)
	err := m.unload(inst)
	m.stream.Forget(pluginID)
	return err
}

func (m *Manager) unload(inst *Instance) error {
	defer inst.slot.Reset()
	if state, _ := inst.State(); state != api.StateLoaded {
		inst.setState(api.StateStopped, nil)
		return nil
	}
	err := inst.plugin.Unload()
	inst.setState(api.StateStopped, nil)
	if err != nil {
		return fmt.Errorf("unload %s: %w", inst.name, err)
	}
	m.logger.Info("plugin unloaded", zap.String("plugin", inst.name))
	return nil
}

// ReloadPlugin unloads and loads the same plugin value again. Its status
// handler slot starts out empty.
func (m *Manager) ReloadPlugin(pluginID string) error {
	inst, ok := m.plugins.Get(pluginID)
	if !ok {
		return fmt.Errorf("reload %s: %w", pluginID, ErrPluginNotFound)
	}
	if err := m.unload(inst); err != nil {
		return err
	}
	return m.load(inst)
}

// GetState reports the lifecycle state of pluginID.
func (m *Manager) GetState(pluginID string) (api.State, error) {
	inst, ok := m.plugins.Get(pluginID)
	if !ok {
		return "", fmt.Errorf("state %s: %w", pluginID, ErrPluginNotFound)
	}
	s, _ := inst.State()
	return s, nil
}

// Lookup returns the instance registered under pluginID.
func (m *Manager) Lookup(pluginID string) (*Instance, bool) {
	return m.plugins.Get(pluginID)
}

// Plugins returns the sorted names of every plugin in the table.
func (m *Manager) Plugins() []string {
	names := m.plugins.Keys()
	sort.Strings(names)
	return names
}

// StopAll unloads every plugin, returning the joined unload errors.
func (m *Manager) StopAll() error {
	var errs []error
	for _, name := range m.Plugins() {
		if err := m.StopPlugin(name); err != nil && !errors.Is(err, ErrPluginNotFound) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
