package review

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// HTTPConfig 配置查询服务的 HTTP 入口。
type HTTPConfig struct {
	Addr         string
	Service      *Service
	AllowOrigins []string // 本地前端来源，空则放开
}

// HTTPServer 提供 Gin 接口，供图表前端拉取标准化数据。
type HTTPServer struct {
	addr   string
	svc    *Service
	router *gin.Engine
}

func NewHTTPServer(cfg HTTPConfig) (*HTTPServer, error) {
	if cfg.Service == nil {
		return nil, errors.New("service 不能为空")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowMethods = []string{http.MethodGet}
	if len(cfg.AllowOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.AllowOrigins
	} else {
		corsCfg.AllowAllOrigins = true
	}
	router.Use(cors.New(corsCfg))

	s := &HTTPServer{addr: cfg.Addr, svc: cfg.Service, router: router}
	s.registerRoutes()
	return s, nil
}

func (s *HTTPServer) registerRoutes() {
	s.router.GET("/health", s.handleHealth)
	api := s.router.Group("/api/review")
	api.GET("/instruments", s.handleInstruments)
	api.GET("/meta", s.handleMeta)
	api.GET("/bars", s.handleBars)
	api.GET("/series", s.handleSeries)
	api.GET("/trades", s.handleTrades)
	api.GET("/report", s.handleReport)
}

// Router 暴露路由供测试注入 httptest。
func (s *HTTPServer) Router() http.Handler { return s.router }

func (s *HTTPServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *HTTPServer) handleInstruments(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"instruments": s.svc.Contracts()})
}

func (s *HTTPServer) handleMeta(c *gin.Context) {
	contract := c.Query("contract")
	if contract == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "contract 必填"})
		return
	}
	meta, err := s.svc.Meta(c.Request.Context(), contract)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"meta": meta})
}

func (s *HTTPServer) handleBars(c *gin.Context) {
	contract, start, end, ok := s.rangeParams(c)
	if !ok {
		return
	}
	bars, err := s.svc.Bars(c.Request.Context(), contract, start, end)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bars": bars})
}

func (s *HTTPServer) handleSeries(c *gin.Context) {
	contract, start, end, ok := s.rangeParams(c)
	if !ok {
		return
	}
	series, err := s.svc.Series(c.Request.Context(), contract, start, end)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"series": series})
}

func (s *HTTPServer) handleTrades(c *gin.Context) {
	contract, start, end, ok := s.rangeParams(c)
	if !ok {
		return
	}
	trades, err := s.svc.Trades(c.Request.Context(), contract, start, end)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trades": trades})
}

func (s *HTTPServer) handleReport(c *gin.Context) {
	contract := c.Query("contract")
	if contract == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "contract 必填"})
		return
	}
	report, err := s.svc.MapReport(c.Request.Context(), contract)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": report})
}

func (s *HTTPServer) rangeParams(c *gin.Context) (contract string, start, end int64, ok bool) {
	contract = c.Query("contract")
	if contract == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "contract 必填"})
		return "", 0, 0, false
	}
	start, err := parseRangeBound(c.Query("start"), false)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("start 无效: %v", err)})
		return "", 0, 0, false
	}
	end, err = parseRangeBound(c.Query("end"), true)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("end 无效: %v", err)})
		return "", 0, 0, false
	}
	return contract, start, end, true
}

// parseRangeBound 接受 epoch 秒或 YYYY-MM-DD；
// 日期作为起点取当天 00:00:00Z，作为终点取 23:59:59Z（闭区间）。
func parseRangeBound(raw string, isEnd bool) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if isEnd {
			return math.MaxInt64, nil
		}
		return math.MinInt64, nil
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n, nil
	}
	day, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
	if err != nil {
		return 0, fmt.Errorf("期望 epoch 秒或 YYYY-MM-DD，得到 %q", raw)
	}
	if isEnd {
		return day.Unix() + 24*3600 - 1, nil
	}
	return day.Unix(), nil
}

// fail 把结构性错误翻成 400，其余按内部错误处理。
func (s *HTTPServer) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrUnknownContract), errors.Is(err, ErrMalformedBar):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// Start 启动 HTTP 服务，阻塞直到 ctx 取消或出现错误。
func (s *HTTPServer) Start(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
