// Package api provides the REST API server for midi2edda
package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/james-see/midi2edda/pkg/chart"
	"github.com/james-see/midi2edda/pkg/config"
	"github.com/james-see/midi2edda/pkg/converter"
	"github.com/james-see/midi2edda/pkg/preview"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title midi2edda API
// @version 1.0
// @description API for converting MIDI drum tracks into Edda charts
// @host localhost:8080
// @BasePath /api/v1

// RequestIDHeader carries the id assigned to every request
const RequestIDHeader = "X-Request-ID"

const (
	modeSingle = "single"
	modeTracks = "tracks"
)

var errNoFile = errors.New("no file uploaded")

// Server serves conversions with a fixed configuration
type Server struct {
	cfg  *config.Config
	conv *converter.Converter
	log  *logrus.Logger
}

// New creates a server. A nil logger means the logrus standard logger.
func New(cfg *config.Config, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Server{
		cfg:  cfg,
		conv: converter.New(cfg.Drums(), converter.WithLogger(log)),
		log:  log,
	}
}

// Router builds the gin engine with every route registered
func (s *Server) Router() *gin.Engine {
	r := gin.Default()
	r.Use(requestID())

	// Health check
	r.GET("/health", healthCheck)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.GET("/config", s.getConfig)
		v1.POST("/convert", s.handleConvert)
		v1.POST("/preview", s.handlePreview)
	}

	// Swagger docs
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

// Handler returns the router wrapped with CORS handling
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader, "Content-Disposition"},
	})
	return c.Handler(s.Router())
}

// StartServer starts the API server on the specified port
func StartServer(port int, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           New(cfg, nil).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	logrus.WithField("addr", srv.Addr).Info("Starting API server")
	return srv.ListenAndServe()
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set("request_id", id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// healthCheck godoc
// @Summary Health check endpoint
// @Description Returns the health status of the API
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "midi2edda",
	})
}

// getConfig godoc
// @Summary Current configuration
// @Description Returns the drum map and batch output extension in use
// @Tags info
// @Produce json
// @Success 200 {object} config.Config
// @Router /api/v1/config [get]
func (s *Server) getConfig(c *gin.Context) {
	c.JSON(http.StatusOK, s.cfg)
}

type namedChart struct {
	Name  string      `json:"name"`
	Chart chart.Chart `json:"chart"`
}

type trackError struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

type tracksResponse struct {
	Charts []namedChart `json:"charts"`
	Errors []trackError `json:"errors"`
}

// handleConvert godoc
// @Summary Convert MIDI to Edda charts
// @Description Upload a MIDI file and receive a single merged chart or one chart per track
// @Tags convert
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "MIDI file to convert"
// @Param mode query string false "single (default) or tracks"
// @Param difficulty query string false "Download name in single mode (default: Easy)"
// @Success 200 {object} chart.Chart
// @Failure 400 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /api/v1/convert [post]
func (s *Server) handleConvert(c *gin.Context) {
	mode := c.DefaultQuery("mode", modeSingle)
	if mode != modeSingle && mode != modeTracks {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown mode %q", mode)})
		return
	}

	song, name, ok := s.readSong(c)
	if !ok {
		return
	}
	entry := s.log.WithFields(logrus.Fields{
		"request_id": c.GetString("request_id"),
		"file":       name,
		"mode":       mode,
	})

	if mode == modeTracks {
		results, err := s.conv.ConvertTracks(song)
		if err != nil {
			entry.WithError(err).Warn("Conversion failed")
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		resp := tracksResponse{Charts: []namedChart{}, Errors: []trackError{}}
		for _, res := range results {
			if res.Err != nil {
				resp.Errors = append(resp.Errors, trackError{Name: res.Title, Error: res.Err.Error()})
				continue
			}
			resp.Charts = append(resp.Charts, namedChart{Name: res.Title, Chart: res.Chart})
		}
		entry.WithFields(logrus.Fields{
			"charts": len(resp.Charts),
			"failed": len(resp.Errors),
		}).Info("Converted tracks")
		c.JSON(http.StatusOK, resp)
		return
	}

	merged, warnings, err := s.conv.ConvertSong(song)
	if err != nil {
		entry.WithError(err).Warn("Conversion failed")
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	var buf bytes.Buffer
	if err := chart.Encode(&buf, merged); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	entry.WithFields(logrus.Fields{
		"notes":    len(merged.Notes),
		"warnings": len(warnings),
	}).Info("Converted song")

	difficulty := c.DefaultQuery("difficulty", "Easy")
	outputName := converter.OutputName(difficulty, s.cfg.BatchOutputExtension)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", outputName))
	c.Data(http.StatusOK, "application/json", buf.Bytes())
}

// handlePreview godoc
// @Summary Render a chart preview
// @Description Upload a MIDI file and receive a PNG of the merged chart
// @Tags preview
// @Accept multipart/form-data
// @Produce image/png
// @Param file formData file true "MIDI file to render"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /api/v1/preview [post]
func (s *Server) handlePreview(c *gin.Context) {
	song, _, ok := s.readSong(c)
	if !ok {
		return
	}

	merged, _, err := s.conv.ConvertSong(song)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	var buf bytes.Buffer
	img := preview.Render(merged, len(s.cfg.DrumMap), preview.DefaultOptions())
	if err := preview.WritePNG(&buf, img); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

// readSong decodes the uploaded MIDI file. On failure it has already written
// a 400 response.
func (s *Server) readSong(c *gin.Context) (*converter.Song, string, bool) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errNoFile.Error()})
		return nil, "", false
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read file"})
		return nil, "", false
	}

	song, err := converter.Decode(data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, "", false
	}
	return song, header.Filename, true
}
