package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/GrainArc/RealmMap/ImgHandler"
	"github.com/GrainArc/RealmMap/framecache"
	"github.com/GrainArc/RealmMap/geomap"
	"github.com/GrainArc/RealmMap/methods"
	"github.com/GrainArc/RealmMap/viewport"
	"github.com/google/uuid"
	"github.com/paulmach/orb"
)

var (
	ErrSessionNotFound = errors.New("viewer session not found")
	ErrNoMap           = errors.New("no map loaded")
	// ErrDegenerate 外包框或画布无法计算变换，跳过绘制
	ErrDegenerate = errors.New("view cannot be fitted")
	// ErrStaleLoad 加载结果晚于更新的一次加载，已丢弃
	ErrStaleLoad    = errors.New("superseded by a newer load")
	ErrUnknownEvent = errors.New("unknown viewer event")
)

// MapSourceLoader 地图库中会话需要的部分
type MapSourceLoader interface {
	LoadMap(ctx context.Context, id string) (MapEntry, []byte, error)
}

// LayerState 图层列表项
type LayerState struct {
	ID      string `json:"id"`
	Visible bool   `json:"visible"`
}

// SessionState 返回给客户端的会话快照
type SessionState struct {
	ID         string       `json:"id"`
	MapID      string       `json:"mapId"`
	MapName    string       `json:"mapName"`
	Loading    bool         `json:"loading"`
	Error      string       `json:"error"`
	Zoom       float64      `json:"zoom"`
	PanX       float64      `json:"panX"`
	PanY       float64      `json:"panY"`
	Dragging   bool         `json:"dragging"`
	Width      int          `json:"width"`
	Height     int          `json:"height"`
	PixelRatio float64      `json:"pixelRatio"`
	ShowLabels bool         `json:"showLabels"`
	Layers     []LayerState `json:"layers"`
	Labels     int          `json:"labels"`
	Bounds     *orb.Bound   `json:"bounds,omitempty"`
}

// ViewerSession 单个查看器的视图状态，所有事件串行处理
type ViewerSession struct {
	ID string

	mu         sync.Mutex
	controller *viewport.Controller
	doc        *geomap.NormalizedMap
	docHash    string
	entry      MapEntry
	visibility ImgHandler.LayerVisibility
	showLabels bool
	loading    bool
	errText    string
	generation uint64
	lastSeen   time.Time
	// sockets 挂在该会话上的长连接数，非零时不过期
	sockets int
}

func newViewerSession(cssWidth, cssHeight, pixelRatio float64) *ViewerSession {
	return &ViewerSession{
		ID:         uuid.NewString(),
		controller: viewport.NewController(cssWidth, cssHeight, pixelRatio),
		visibility: ImgHandler.LayerVisibility{},
		showLabels: true,
		lastSeen:   time.Now(),
	}
}

// beginLoad 开始一次加载并返回其代号
func (s *ViewerSession) beginLoad() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.loading = true
	s.errText = ""
	return s.generation
}

// finishLoad 只有最新一次加载的结果会被采用
func (s *ViewerSession) finishLoad(gen uint64, entry MapEntry, raw []byte, loadErr error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return ErrStaleLoad
	}
	s.loading = false

	if loadErr != nil {
		s.errText = "Failed to load map: " + loadErr.Error()
		return loadErr
	}
	m, err := geomap.Normalize(raw)
	if err != nil {
		s.errText = err.Error()
		return err
	}

	s.doc = m
	s.docHash = methods.Md5Str(string(raw))
	s.entry = entry
	s.visibility = ImgHandler.LayerVisibility{}
	for id := range m.Layers {
		s.visibility[id] = true
	}
	s.errText = ""
	s.controller.ResetForDocument(geomap.FocusBounds(m))
	return nil
}

func (s *ViewerSession) stateLocked() SessionState {
	st := s.controller.State()
	w, h := s.controller.Size()
	state := SessionState{
		ID:         s.ID,
		MapID:      s.entry.ID,
		MapName:    s.displayNameLocked(),
		Loading:    s.loading,
		Error:      s.errText,
		Zoom:       st.Zoom,
		PanX:       st.PanX,
		PanY:       st.PanY,
		Dragging:   s.controller.DragState() == viewport.Dragging,
		Width:      w,
		Height:     h,
		PixelRatio: s.controller.PixelRatio(),
		ShowLabels: s.showLabels,
		Layers:     make([]LayerState, 0),
	}
	if s.doc != nil {
		for _, id := range ImgHandler.LayerIDs() {
			if _, ok := s.doc.Layers[id]; ok {
				state.Layers = append(state.Layers, LayerState{ID: id, Visible: s.visibility.Visible(id)})
			}
		}
		state.Labels = len(s.doc.Labels)
		state.Bounds = geomap.FocusBounds(s.doc)
	}
	return state
}

func (s *ViewerSession) displayNameLocked() string {
	if name := s.doc.Name(); name != "" {
		return name
	}
	return s.entry.Name
}

func (s *ViewerSession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *ViewerSession) Wheel(deltaY, cssX, cssY float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.controller.Wheel(deltaY, cssX, cssY)
}

// Zoom 缩放按钮，以画布中心为锚点
func (s *ViewerSession) Zoom(zoomIn bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	factor := 1 / viewport.ButtonStep
	if zoomIn {
		factor = viewport.ButtonStep
	}
	s.controller.ZoomBy(factor, nil)
}

// Pointer 处理 down/move/up/leave，返回视图是否变化
func (s *ViewerSession) Pointer(kind string, pointerID int64, cssX, cssY float64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch kind {
	case "down":
		s.controller.PointerDown(pointerID, cssX, cssY)
		return false, nil
	case "move":
		return s.controller.PointerMove(pointerID, cssX, cssY), nil
	case "up":
		s.controller.PointerUp(pointerID)
		return false, nil
	case "leave":
		s.controller.PointerLeave(pointerID)
		return false, nil
	}
	return false, fmt.Errorf("pointer %q: %w", kind, ErrUnknownEvent)
}

func (s *ViewerSession) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.controller.Reset()
}

func (s *ViewerSession) Resize(cssWidth, cssHeight, pixelRatio float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.controller.Resize(cssWidth, cssHeight, pixelRatio)
}

// SetLayers 更新图层显隐，未知图层也会记录，文档中不存在时无影响
func (s *ViewerSession) SetLayers(visibility map[string]bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, visible := range visibility {
		s.visibility[id] = visible
	}
}

func (s *ViewerSession) SetShowLabels(show bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.showLabels = show
}

// visibilityKey 隐藏图层排序后拼接，用于缓存键
func (s *ViewerSession) visibilityKey() string {
	hidden := make([]string, 0)
	for id, visible := range s.visibility {
		if !visible {
			hidden = append(hidden, id)
		}
	}
	sort.Strings(hidden)
	return strings.Join(hidden, ",")
}

func (s *ViewerSession) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *ViewerSession) expired(now time.Time, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sockets == 0 && now.Sub(s.lastSeen) > ttl
}

// ViewerService 会话注册表
type ViewerService struct {
	library MapSourceLoader
	cache   framecache.Cache
	ttl     time.Duration

	mu       sync.RWMutex
	sessions map[string]*ViewerSession
	now      func() time.Time
}

func NewViewerService(library MapSourceLoader, cache framecache.Cache, ttl time.Duration) *ViewerService {
	return &ViewerService{
		library:  library,
		cache:    cache,
		ttl:      ttl,
		sessions: make(map[string]*ViewerSession),
		now:      time.Now,
	}
}

func (v *ViewerService) Create(cssWidth, cssHeight, pixelRatio float64) *ViewerSession {
	sess := newViewerSession(cssWidth, cssHeight, pixelRatio)
	sess.lastSeen = v.now()
	v.mu.Lock()
	v.sessions[sess.ID] = sess
	v.mu.Unlock()
	return sess
}

func (v *ViewerService) Get(id string) (*ViewerSession, error) {
	v.mu.RLock()
	sess, ok := v.sessions[id]
	v.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
	}
	sess.touch(v.now())
	return sess, nil
}

// Touch 记录会话活动，长连接每收到一个事件调用一次
func (v *ViewerService) Touch(sess *ViewerSession) {
	sess.touch(v.now())
}

// Attach 登记一条长连接，连接存续期间会话不会过期；返回的 detach 只生效一次
func (v *ViewerService) Attach(sess *ViewerSession) (detach func()) {
	sess.mu.Lock()
	sess.sockets++
	sess.lastSeen = v.now()
	sess.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			sess.mu.Lock()
			sess.sockets--
			sess.lastSeen = v.now()
			sess.mu.Unlock()
		})
	}
}

func (v *ViewerService) Delete(id string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.sessions[id]
	delete(v.sessions, id)
	return ok
}

func (v *ViewerService) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.sessions)
}

// Expire 删除空闲超过 ttl 且没有长连接的会话，返回删除数量
func (v *ViewerService) Expire() int {
	if v.ttl <= 0 {
		return 0
	}
	now := v.now()
	v.mu.Lock()
	defer v.mu.Unlock()
	removed := 0
	for id, sess := range v.sessions {
		if sess.expired(now, v.ttl) {
			delete(v.sessions, id)
			removed++
		}
	}
	return removed
}

// RunExpiry 定期清理空闲会话，直到 ctx 结束
func (v *ViewerService) RunExpiry(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := v.Expire(); n > 0 {
				log.Printf("清理空闲查看会话 %d 个", n)
			}
		}
	}
}

// Load 从地图库加载，过期结果返回 ErrStaleLoad
func (v *ViewerService) Load(ctx context.Context, sess *ViewerSession, mapID string) error {
	gen := sess.beginLoad()
	entry, raw, err := v.library.LoadMap(ctx, mapID)
	return sess.finishLoad(gen, entry, raw, err)
}

// LoadRaw 加载上传的文档
func (v *ViewerService) LoadRaw(sess *ViewerSession, name string, raw []byte) error {
	gen := sess.beginLoad()
	entry := MapEntry{ID: "upload:" + sess.ID, Name: strings.TrimSpace(name), Source: "upload", UpdatedAt: v.now(), Size: int64(len(raw))}
	return sess.finishLoad(gen, entry, raw, nil)
}

// Frame 按当前视图渲染 PNG
func (v *ViewerService) Frame(ctx context.Context, sess *ViewerSession) ([]byte, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.doc == nil {
		return nil, ErrNoMap
	}
	live, ok := sess.controller.Live()
	if !ok {
		return nil, ErrDegenerate
	}
	w, h := sess.controller.Size()

	key := frameKey(sess.docHash, sess.visibilityKey(), sess.showLabels, w, h, live)
	if data, hit := v.cacheGet(ctx, key); hit {
		return data, nil
	}
	data, err := ImgHandler.RenderFrame(sess.doc, sess.visibility, sess.showLabels, live, w, h)
	if err != nil {
		return nil, err
	}
	v.cacheSet(ctx, key, data)
	return data, nil
}

// Export 渲染高分辨率导出图，返回数据和文件名
func (v *ViewerService) Export(ctx context.Context, sess *ViewerSession, format ImgHandler.ExportFormat) ([]byte, string, error) {
	sess.mu.Lock()
	if sess.doc == nil {
		sess.mu.Unlock()
		return nil, "", ErrNoMap
	}
	doc := sess.doc
	visibility := make(ImgHandler.LayerVisibility, len(sess.visibility))
	for id, visible := range sess.visibility {
		visibility[id] = visible
	}
	showLabels := sess.showLabels
	name := sess.displayNameLocked()
	key := methods.CacheKey("export", sess.docHash, string(format), sess.visibilityKey(), strconv.FormatBool(showLabels))
	sess.mu.Unlock()

	filename := methods.ExportFileName(name, format.Ext())
	if data, hit := v.cacheGet(ctx, key); hit {
		return data, filename, nil
	}
	data, err := ImgHandler.ExportImage(doc, visibility, showLabels, format)
	if err != nil {
		return nil, "", err
	}
	v.cacheSet(ctx, key, data)
	return data, filename, nil
}

// frameKey 帧缓存键，覆盖所有影响像素输出的参数；像素比决定线宽与字号
func frameKey(docHash, visibility string, showLabels bool, w, h int, live viewport.LiveTransform) string {
	return methods.CacheKey("frame", docHash, visibility, strconv.FormatBool(showLabels),
		strconv.Itoa(w), strconv.Itoa(h),
		fmt.Sprintf("%g/%g/%g/%g/%g", live.Scale, live.OffsetX, live.OffsetY, live.Zoom, live.PixelRatio))
}

func (v *ViewerService) cacheGet(ctx context.Context, key string) ([]byte, bool) {
	if v.cache == nil {
		return nil, false
	}
	return v.cache.Get(ctx, key)
}

func (v *ViewerService) cacheSet(ctx context.Context, key string, data []byte) {
	if v.cache != nil {
		v.cache.Set(ctx, key, data)
	}
}
