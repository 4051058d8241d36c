package profile

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"tradereview/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/viper"
)

// profileSchema 约束单份档案的形状，加载时逐份校验。
const profileSchema = `{
  "type": "object",
  "properties": {
    "description": {"type": "string"},
    "timezone": {"type": "string"},
    "collapse": {"enum": ["first-last", "skip"]},
    "max_skew_seconds": {"type": "integer", "minimum": 0},
    "price_epsilon": {"type": "number", "minimum": 0},
    "bars": {
      "type": "object",
      "additionalProperties": {"type": "array", "items": {"type": "string"}}
    },
    "indicators": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "column": {"type": "string", "minLength": 1},
          "display_name": {"type": "string"},
          "kind": {"enum": ["line", "histogram"]},
          "pane": {"type": "string"}
        },
        "required": ["column"]
      }
    },
    "trades": {
      "type": "object",
      "additionalProperties": {"type": "array", "items": {"type": "string"}}
    }
  },
  "additionalProperties": false
}`

var compiledSchema = jsonschema.MustCompileString("profile.schema.json", profileSchema)

// Snapshot 是某一时刻的档案全集。
type Snapshot struct {
	Version  int64
	LoadedAt time.Time
	Profiles map[string]Profile
}

// ChangeListener 在档案热重载成功后触发。
type ChangeListener func(Snapshot)

// Registry 从 YAML 文件加载映射档案并监听变更。
type Registry struct {
	path string
	v    *viper.Viper

	mu        sync.RWMutex
	snapshot  Snapshot
	listeners []ChangeListener
}

type fileConfig struct {
	Profiles map[string]Profile `mapstructure:"profiles"`
}

// NewRegistry 读取档案文件并开启 fsnotify 监听；path 为空时
// 返回只含内置 default 档案的静态注册表。
func NewRegistry(path string) (*Registry, error) {
	r := &Registry{path: strings.TrimSpace(path)}
	if r.path == "" {
		r.snapshot = Snapshot{Version: 1, LoadedAt: time.Now(), Profiles: map[string]Profile{"default": Default()}}
		return r, nil
	}
	v := viper.New()
	v.SetConfigFile(r.path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取映射档案失败: %w", err)
	}
	r.v = v
	if err := r.reload(); err != nil {
		return nil, err
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := r.reload(); err != nil {
			logger.Errorf("映射档案重载失败: %v", err)
			return
		}
		r.notifyListeners()
	})
	v.WatchConfig()
	return r, nil
}

func (r *Registry) reload() error {
	if err := r.v.ReadInConfig(); err != nil {
		return fmt.Errorf("读取映射档案失败: %w", err)
	}
	rawProfiles, _ := r.v.Get("profiles").(map[string]any)
	for id, raw := range rawProfiles {
		if err := validateRaw(raw); err != nil {
			return fmt.Errorf("档案 %s 不合法: %w", id, err)
		}
	}
	var fc fileConfig
	if err := r.v.Unmarshal(&fc); err != nil {
		return fmt.Errorf("解析映射档案失败: %w", err)
	}
	profiles := make(map[string]Profile, len(fc.Profiles)+1)
	for id, p := range fc.Profiles {
		p.ID = id
		profiles[id] = p
	}
	if _, ok := profiles["default"]; !ok {
		profiles["default"] = Default()
	}
	r.mu.Lock()
	r.snapshot = Snapshot{
		Version:  r.snapshot.Version + 1,
		LoadedAt: time.Now(),
		Profiles: profiles,
	}
	r.mu.Unlock()
	logger.Infof("映射档案已加载: %d 份 (%s)", len(profiles), r.path)
	for id, p := range profiles {
		logger.Debugf("档案 %s:\n%s", id, p.Render())
	}
	return nil
}

// validateRaw 过 JSON 一轮以拿到 schema 校验可用的规范类型。
func validateRaw(raw any) error {
	buf, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	var doc any
	if err := json.Unmarshal(buf, &doc); err != nil {
		return err
	}
	return compiledSchema.Validate(doc)
}

// Snapshot 返回当前档案集快照。
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneSnapshot(r.snapshot)
}

// Profile 按 id 取档案，空 id 取 default。
func (r *Registry) Profile(id string) (Profile, bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		id = "default"
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.snapshot.Profiles[id]
	return p, ok
}

// IDs 返回全部档案 id（排序后）。
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.snapshot.Profiles))
	for id := range r.snapshot.Profiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// OnChange 注册重载回调。
func (r *Registry) OnChange(l ChangeListener) {
	if l == nil {
		return
	}
	r.mu.Lock()
	r.listeners = append(r.listeners, l)
	r.mu.Unlock()
}

func (r *Registry) notifyListeners() {
	r.mu.RLock()
	ls := append([]ChangeListener(nil), r.listeners...)
	snap := cloneSnapshot(r.snapshot)
	r.mu.RUnlock()
	for _, l := range ls {
		l(snap)
	}
}

func cloneSnapshot(s Snapshot) Snapshot {
	out := Snapshot{Version: s.Version, LoadedAt: s.LoadedAt, Profiles: make(map[string]Profile, len(s.Profiles))}
	for id, p := range s.Profiles {
		out.Profiles[id] = p
	}
	return out
}
