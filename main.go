package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/weronikagajda/Citography-hostmap.github.io/globe"
	"github.com/weronikagajda/Citography-hostmap.github.io/hostmap"
	"github.com/weronikagajda/Citography-hostmap.github.io/internal/logger"
	"github.com/weronikagajda/Citography-hostmap.github.io/internal/metrics"
	"github.com/weronikagajda/Citography-hostmap.github.io/internal/middleware"
	"github.com/weronikagajda/Citography-hostmap.github.io/render"
)

const DATASET_SAVE_DIR = "data/datasets"

// HostmapServer owns the engine and the active dataset. Every handler goes
// through the mutex; the engine itself is single-threaded.
type HostmapServer struct {
	mu           sync.Mutex
	engine       *globe.Engine
	datasetID    string
	lastAccessed time.Time
	style        render.Style
}

func NewHostmapServer() *HostmapServer {
	en := globe.NewEngine(globe.LayoutOptions{})
	return &HostmapServer{engine: en, style: render.DefaultStyle()}
}

func formatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

func snapshotExt() string {
	if os.Getenv("SNAPSHOT_FORMAT") == "mmap" {
		return ".mzst"
	}
	return ".zst"
}

func generateDatasetFilename(size int) string {
	timestamp := time.Now().Format("20060102-150405")
	id := uuid.New().String()[:8]
	return filepath.Join(DATASET_SAVE_DIR, fmt.Sprintf("dataset-%dp-%s-%s%s", size, timestamp, id, snapshotExt()))
}

func saveSnapshot(d *globe.Dataset) (string, error) {
	path := generateDatasetFilename(len(d.Entities))
	var err error
	if strings.HasSuffix(path, ".mzst") {
		err = d.SaveCompressedMMap(path)
	} else {
		err = d.SaveCompressed(path)
	}
	if err != nil {
		return "", err
	}
	if info, statErr := os.Stat(path); statErr == nil {
		metrics.SnapshotBytes.Set(float64(info.Size()))
		logger.L().Info("snapshot_saved", "path", path, "size", formatFileSize(info.Size()))
	}
	return path, nil
}

func loadSnapshot(path string) (*globe.Dataset, error) {
	if strings.HasSuffix(path, ".mzst") {
		return globe.LoadCompressedMMap(path)
	}
	return globe.LoadCompressedDataset(path)
}

type DatasetInfo struct {
	ID          string    `json:"id"`
	NumEntities int       `json:"numEntities"`
	Timestamp   time.Time `json:"timestamp"`
	FileSize    int64     `json:"fileSize"`
}

// parseSnapshotName decodes dataset-{n}p-{timestamp}-{id}{ext}.
func parseSnapshotName(filename string, size int64) (DatasetInfo, bool) {
	name := strings.TrimSuffix(strings.TrimSuffix(filename, ".zst"), ".mzst")
	parts := strings.Split(name, "-")
	if len(parts) != 5 || parts[0] != "dataset" {
		return DatasetInfo{}, false
	}
	numEntities, err := strconv.Atoi(strings.TrimSuffix(parts[1], "p"))
	if err != nil {
		return DatasetInfo{}, false
	}
	timestamp, err := time.Parse("20060102-150405", parts[2]+"-"+parts[3])
	if err != nil {
		return DatasetInfo{}, false
	}
	return DatasetInfo{ID: parts[4], NumEntities: numEntities, Timestamp: timestamp, FileSize: size}, true
}

func (s *HostmapServer) listDatasets() ([]DatasetInfo, error) {
	files, err := os.ReadDir(DATASET_SAVE_DIR)
	if err != nil {
		return nil, err
	}
	infos := make([]DatasetInfo, 0)
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		ext := filepath.Ext(file.Name())
		if ext != ".zst" && ext != ".mzst" {
			continue
		}
		fi, err := file.Info()
		if err != nil {
			continue
		}
		if info, ok := parseSnapshotName(file.Name(), fi.Size()); ok {
			infos = append(infos, info)
		}
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Timestamp.After(infos[j].Timestamp)
	})
	return infos, nil
}

func (s *HostmapServer) loadDatasetById(id string) (*DatasetInfo, error) {
	files, err := os.ReadDir(DATASET_SAVE_DIR)
	if err != nil {
		return nil, err
	}
	for _, file := range files {
		if !strings.Contains(file.Name(), id) {
			continue
		}
		path := filepath.Join(DATASET_SAVE_DIR, file.Name())
		fi, _ := os.Stat(path)
		var size int64
		if fi != nil {
			size = fi.Size()
		}
		info, ok := parseSnapshotName(file.Name(), size)
		if !ok {
			continue
		}
		loadStart := time.Now()
		d, err := loadSnapshot(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load dataset: %w", err)
		}
		logger.L().Info("dataset_loaded", "path", path, "entities", len(d.Entities), "elapsed", time.Since(loadStart))
		s.engine.SetDataset(d)
		s.datasetID = info.ID
		s.lastAccessed = time.Now()
		metrics.DatasetsLoadedTotal.Inc()
		metrics.EntitiesActive.Set(float64(len(d.Entities)))
		return &info, nil
	}
	return nil, fmt.Errorf("dataset with ID %s not found", id)
}

func (s *HostmapServer) setDataset(d *globe.Dataset, id string) {
	s.engine.SetDataset(d)
	s.datasetID = id
	s.lastAccessed = time.Now()
	metrics.DatasetsLoadedTotal.Inc()
	metrics.EntitiesActive.Set(float64(len(d.Entities)))
}

func (s *HostmapServer) frame() *globe.FrameResult {
	start := time.Now()
	f := s.engine.Frame()
	metrics.FramesTotal.Inc()
	metrics.FrameDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000)
	visible := 0
	for _, c := range f.Commands {
		if c.Visible {
			visible++
		}
	}
	metrics.MarkersVisible.Set(float64(visible))
	s.lastAccessed = time.Now()
	return f
}

func main() {
	if err := godotenv.Load(); err != nil {
		logger.L().Debug("no .env file loaded", "error", err)
	}
	log := logger.Setup()

	if err := os.MkdirAll(DATASET_SAVE_DIR, 0755); err != nil {
		log.Error("failed to create dataset directory", "dir", DATASET_SAVE_DIR, "error", err)
	}

	server := NewHostmapServer()
	if path := os.Getenv("STYLE_FILE"); path != "" {
		if style, err := render.LoadStyle(path); err != nil {
			log.Warn("style_load_failed", "path", path, "error", err)
		} else {
			server.style = style
		}
	}
	log.Info("started with empty server, waiting for a dataset")

	r := gin.Default()
	r.Use(middleware.CORS())
	r.Use(middleware.RateLimit())

	// Current frame as render commands.
	r.GET("/api/frame", func(c *gin.Context) {
		server.mu.Lock()
		f := server.frame()
		server.mu.Unlock()
		c.JSON(http.StatusOK, f)
	})

	// Same frame as a standalone SVG snapshot.
	r.GET("/api/frame.svg", func(c *gin.Context) {
		server.mu.Lock()
		f := server.frame()
		svg := render.SVG(*f, server.style)
		server.mu.Unlock()
		c.Data(http.StatusOK, "image/svg+xml", []byte(svg))
	})

	// Build a dataset from pipeline CSVs and snapshot it.
	r.POST("/api/datasets", func(c *gin.Context) {
		var req struct {
			Name           string `json:"name"`
			ReferencesPath string `json:"referencesPath"`
			FoldersPath    string `json:"foldersPath"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		if req.ReferencesPath == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "referencesPath is required"})
			return
		}
		records, err := hostmap.ReadReferences(req.ReferencesPath)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var folders []hostmap.FolderRow
		if req.FoldersPath != "" {
			if folders, err = hostmap.ReadFolders(req.FoldersPath); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}
		name := req.Name
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(req.ReferencesPath), filepath.Ext(req.ReferencesPath))
		}
		d := hostmap.BuildDataset(name, records, folders)

		server.mu.Lock()
		defer server.mu.Unlock()
		path, err := saveSnapshot(d)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		info, _ := parseSnapshotName(filepath.Base(path), 0)
		server.setDataset(d, info.ID)
		c.JSON(http.StatusOK, gin.H{"message": "Dataset created", "id": info.ID, "numEntities": len(d.Entities)})
	})

	// Synthetic dataset for load testing without a bookmark export.
	r.POST("/api/datasets/generate", func(c *gin.Context) {
		var req struct {
			NumEntities int   `json:"numEntities"`
			Seed        int64 `json:"seed"`
		}
		if err := c.BindJSON(&req); err != nil || req.NumEntities <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid numEntities"})
			return
		}
		d := &globe.Dataset{
			Name:     fmt.Sprintf("generated-%d", req.NumEntities),
			Entities: globe.GenerateTestEntities(req.NumEntities, req.Seed),
		}
		server.mu.Lock()
		defer server.mu.Unlock()
		path, err := saveSnapshot(d)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		info, _ := parseSnapshotName(filepath.Base(path), 0)
		server.setDataset(d, info.ID)
		c.JSON(http.StatusOK, gin.H{"message": "Dataset generated", "id": info.ID})
	})

	r.GET("/api/datasets/list", func(c *gin.Context) {
		datasets, err := server.listDatasets()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, datasets)
	})

	r.POST("/api/datasets/load/:id", func(c *gin.Context) {
		id := c.Param("id")
		server.mu.Lock()
		info, err := server.loadDatasetById(id)
		server.mu.Unlock()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Dataset loaded successfully", "datasetInfo": info})
	})

	r.GET("/api/summary", func(c *gin.Context) {
		server.mu.Lock()
		d := server.engine.Dataset()
		server.mu.Unlock()
		if d == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "No dataset loaded"})
			return
		}
		c.JSON(http.StatusOK, globe.Summarize(d))
	})

	r.GET("/api/folders", func(c *gin.Context) {
		server.mu.Lock()
		d := server.engine.Dataset()
		server.mu.Unlock()
		if d == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "No dataset loaded"})
			return
		}
		c.JSON(http.StatusOK, d.Folders)
	})

	// Viewport controls.
	r.POST("/api/view", func(c *gin.Context) {
		var req struct {
			Width      float64 `json:"width"`
			Height     float64 `json:"height"`
			Scale      float64 `json:"scale"`
			CenterLon  float64 `json:"centerLon"`
			CenterLat  float64 `json:"centerLat"`
			Projection string  `json:"projection"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		server.mu.Lock()
		v := globe.Viewport{
			Scale: req.Scale, Width: req.Width, Height: req.Height,
			CenterLon: req.CenterLon, CenterLat: req.CenterLat, Projection: req.Projection,
		}
		server.engine.SetViewport(v)
		out := server.engine.Viewport()
		server.mu.Unlock()
		c.JSON(http.StatusOK, out)
	})

	r.POST("/api/view/zoom", func(c *gin.Context) {
		scale, err := strconv.ParseFloat(c.Query("scale"), 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid scale parameter"})
			return
		}
		server.mu.Lock()
		server.engine.SetZoom(scale)
		out := server.engine.Viewport()
		server.mu.Unlock()
		c.JSON(http.StatusOK, out)
	})

	r.POST("/api/view/projection", func(c *gin.Context) {
		name := c.Query("name")
		if name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing name parameter"})
			return
		}
		server.mu.Lock()
		server.engine.SetProjection(name)
		out := server.engine.Viewport()
		server.mu.Unlock()
		c.JSON(http.StatusOK, out)
	})

	// Advance the idle rotation clock.
	r.POST("/api/view/tick", func(c *gin.Context) {
		ms, err := strconv.Atoi(c.DefaultQuery("ms", "16"))
		if err != nil || ms < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ms parameter"})
			return
		}
		server.mu.Lock()
		server.engine.Tick(time.Duration(ms) * time.Millisecond)
		out := server.engine.Viewport()
		server.mu.Unlock()
		c.JSON(http.StatusOK, out)
	})

	// Interaction state machine.
	r.POST("/api/spin/start", func(c *gin.Context) {
		server.mu.Lock()
		server.engine.StartSpin()
		server.mu.Unlock()
		c.JSON(http.StatusOK, gin.H{"spinning": true})
	})
	r.POST("/api/spin/stop", func(c *gin.Context) {
		server.mu.Lock()
		server.engine.StopSpin()
		server.mu.Unlock()
		c.JSON(http.StatusOK, gin.H{"spinning": false})
	})
	r.POST("/api/drag/start", func(c *gin.Context) {
		server.mu.Lock()
		server.engine.StartDrag()
		server.mu.Unlock()
		c.Status(http.StatusNoContent)
	})
	r.POST("/api/drag/move", func(c *gin.Context) {
		dLon, err1 := strconv.ParseFloat(c.Query("dlon"), 64)
		dLat, err2 := strconv.ParseFloat(c.Query("dlat"), 64)
		if err1 != nil || err2 != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid dlon/dlat parameters"})
			return
		}
		server.mu.Lock()
		server.engine.Drag(dLon, dLat)
		out := server.engine.Viewport()
		server.mu.Unlock()
		c.JSON(http.StatusOK, out)
	})
	r.POST("/api/drag/end", func(c *gin.Context) {
		server.mu.Lock()
		server.engine.EndDrag()
		spinning := server.engine.Spinning()
		server.mu.Unlock()
		c.JSON(http.StatusOK, gin.H{"spinning": spinning})
	})
	r.POST("/api/hover", func(c *gin.Context) {
		server.mu.Lock()
		server.engine.SetHover(c.Query("id"))
		server.mu.Unlock()
		c.Status(http.StatusNoContent)
	})
	r.POST("/api/popup/open", func(c *gin.Context) {
		id := c.Query("id")
		server.mu.Lock()
		err := server.engine.OpenPopup(id)
		server.mu.Unlock()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"popup": id})
	})
	r.POST("/api/popup/close", func(c *gin.Context) {
		server.mu.Lock()
		server.engine.ClosePopup()
		server.mu.Unlock()
		c.Status(http.StatusNoContent)
	})

	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Large datasets are evicted back to disk after sitting idle, so a
	// forgotten tab does not pin a 100k-entity dataset in memory.
	if v := os.Getenv("DATASET_IDLE_MINUTES"); v != "" {
		if idleMinutes, err := strconv.Atoi(v); err == nil && idleMinutes > 0 {
			go func() {
				idle := time.Duration(idleMinutes) * time.Minute
				for range time.Tick(time.Minute) {
					server.mu.Lock()
					d := server.engine.Dataset()
					if d != nil && len(d.Entities) > 0 && time.Since(server.lastAccessed) > idle {
						if _, err := saveSnapshot(d); err != nil {
							log.Error("failed to snapshot idle dataset", "error", err)
						} else {
							server.engine.SetDataset(nil)
							server.datasetID = ""
							metrics.EntitiesActive.Set(0)
							log.Info("idle dataset evicted", "idle", idle)
						}
					}
					server.mu.Unlock()
				}
			}()
		}
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}
	go func() {
		log.Info("starting server", "port", port)
		if err := r.Run(":" + port); err != nil {
			log.Error("server error", "error", err)
		}
	}()

	<-quit
	log.Info("shutting down server")

	// Snapshot the active dataset so offsets-in-progress are not lost.
	server.mu.Lock()
	d := server.engine.Dataset()
	server.mu.Unlock()
	if d != nil && len(d.Entities) > 0 {
		if _, err := saveSnapshot(d); err != nil {
			log.Error("failed to save dataset on shutdown", "error", err)
		}
	}
	log.Info("server stopped")
}
