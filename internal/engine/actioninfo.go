package engine

import (
	"strings"
	"sync"

	"github.com/petrijr/comgr/pkg/api"
)

type actionInfo struct {
	mu  sync.Mutex
	cfg infoConfig
}

// infoConfig is a copy of the action info fields taken when an action starts.
type infoConfig struct {
	isa        string
	language   api.Language
	options    string
	workingDir string
	logging    bool
}

// optionList splits the options string the way a shell would without quoting.
func (c infoConfig) optionList() []string {
	return strings.Fields(c.options)
}

func (ai *actionInfo) snapshot() infoConfig {
	ai.mu.Lock()
	defer ai.mu.Unlock()
	return ai.cfg
}

func (ai *actionInfo) update(fn func(*infoConfig)) {
	ai.mu.Lock()
	fn(&ai.cfg)
	ai.mu.Unlock()
}

func (m *manager) resolveInfo(h api.ActionInfo) (*actionInfo, error) {
	ai, err := m.infos.Resolve(h.Handle)
	if err != nil {
		return nil, tableError("action info", err)
	}
	return ai, nil
}

func (m *manager) CreateActionInfo() (api.ActionInfo, error) {
	h, err := m.infos.Allocate(&actionInfo{})
	if err != nil {
		return api.ActionInfo{}, tableError("create action info", err)
	}
	return api.ActionInfo{Handle: h}, nil
}

func (m *manager) DestroyActionInfo(h api.ActionInfo) error {
	if _, err := m.infos.Release(h.Handle); err != nil {
		return tableError("destroy action info", err)
	}
	return nil
}

func (m *manager) ActionInfoSetISAName(h api.ActionInfo, isaName string) error {
	ai, err := m.resolveInfo(h)
	if err != nil {
		return err
	}
	if isaName != "" {
		if _, ok := m.isas.Lookup(isaName); !ok {
			return api.Invalidf("unsupported isa %q", isaName)
		}
	}
	ai.update(func(c *infoConfig) { c.isa = isaName })
	return nil
}

func (m *manager) ActionInfoGetISAName(h api.ActionInfo) (string, error) {
	ai, err := m.resolveInfo(h)
	if err != nil {
		return "", err
	}
	return ai.snapshot().isa, nil
}

func (m *manager) ActionInfoSetLanguage(h api.ActionInfo, lang api.Language) error {
	ai, err := m.resolveInfo(h)
	if err != nil {
		return err
	}
	if !lang.Valid() {
		return api.Invalidf("unknown language %s", lang)
	}
	ai.update(func(c *infoConfig) { c.language = lang })
	return nil
}

func (m *manager) ActionInfoGetLanguage(h api.ActionInfo) (api.Language, error) {
	ai, err := m.resolveInfo(h)
	if err != nil {
		return api.LanguageNone, err
	}
	return ai.snapshot().language, nil
}

func (m *manager) ActionInfoSetOptions(h api.ActionInfo, options string) error {
	ai, err := m.resolveInfo(h)
	if err != nil {
		return err
	}
	ai.update(func(c *infoConfig) { c.options = options })
	return nil
}

func (m *manager) ActionInfoGetOptions(h api.ActionInfo) (string, error) {
	ai, err := m.resolveInfo(h)
	if err != nil {
		return "", err
	}
	return ai.snapshot().options, nil
}

func (m *manager) ActionInfoSetWorkingDirectoryPath(h api.ActionInfo, path string) error {
	ai, err := m.resolveInfo(h)
	if err != nil {
		return err
	}
	ai.update(func(c *infoConfig) { c.workingDir = path })
	return nil
}

func (m *manager) ActionInfoGetWorkingDirectoryPath(h api.ActionInfo) (string, error) {
	ai, err := m.resolveInfo(h)
	if err != nil {
		return "", err
	}
	return ai.snapshot().workingDir, nil
}

func (m *manager) ActionInfoSetLogging(h api.ActionInfo, logging bool) error {
	ai, err := m.resolveInfo(h)
	if err != nil {
		return err
	}
	ai.update(func(c *infoConfig) { c.logging = logging })
	return nil
}

func (m *manager) ActionInfoGetLogging(h api.ActionInfo) (bool, error) {
	ai, err := m.resolveInfo(h)
	if err != nil {
		return false, err
	}
	return ai.snapshot().logging, nil
}
