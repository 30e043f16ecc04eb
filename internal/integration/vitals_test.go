package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/sebasr/vitals-service/internal/auth"
	"github.com/sebasr/vitals-service/internal/config"
	"github.com/sebasr/vitals-service/internal/database"
	"github.com/sebasr/vitals-service/internal/device"
	"github.com/sebasr/vitals-service/internal/handlers"
	"github.com/sebasr/vitals-service/internal/metrics"
	"github.com/sebasr/vitals-service/internal/models"
	"github.com/sebasr/vitals-service/internal/pagination"
	"github.com/sebasr/vitals-service/internal/poller"
	"github.com/sebasr/vitals-service/internal/prediction"
	"github.com/sebasr/vitals-service/internal/repository"
	"github.com/sebasr/vitals-service/internal/server"
	"github.com/sebasr/vitals-service/internal/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// setupTestDatabase creates a migrated test database using Testcontainers
func setupTestDatabase(t *testing.T) *database.DB {
	t.Helper()

	ctx := context.Background()

	// Set Docker socket for Colima if not already set
	if os.Getenv("DOCKER_HOST") == "" {
		colimaSocket := os.ExpandEnv("$HOME/.colima/default/docker.sock")
		if _, err := os.Stat(colimaSocket); err == nil {
			t.Setenv("DOCKER_HOST", "unix://"+colimaSocket)
			// Ryuk cannot mount the Colima socket
			t.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")
			t.Logf("Using Colima Docker socket: %s (Ryuk disabled)", colimaSocket)
		}
	}

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "testuser",
			"POSTGRES_PASSWORD": "testpass",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}

	postgres, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = postgres.Terminate(ctx) })

	host, err := postgres.Host(ctx)
	require.NoError(t, err)

	port, err := postgres.MappedPort(ctx, "5432")
	require.NoError(t, err)

	cfg := config.New().Database
	cfg.Host = host
	cfg.Port = port.Port()
	cfg.Name = "testdb"
	cfg.User = "testuser"
	cfg.Password = "testpass"

	db, err := database.New(&cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.Migrate(ctx, db.DB))

	return db
}

// newSensor serves device samples with an increasing heart rate
func newSensor(t *testing.T) *httptest.Server {
	t.Helper()

	var beat atomic.Int32
	beat.Store(59)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"spo2":        "--",
			"heartRate":   beat.Add(1),
			"temperature": 36.7,
			"status":      "ok",
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newInference(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"prediction":"normal","confidence":0.93}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestUploadAndBrowseVitals(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDatabase(t)
	ctx := context.Background()

	cfg := config.New()
	cfg.Auth.JWTSecret = "integration-secret"
	cfg.Pagination.PageSize = 3
	cfg.Server.UploadRateLimit = 100

	store := repository.NewPostgresVitalsRepository(db.DB)
	patients := repository.NewPostgresPatientRepository(db.DB)

	patientID := uuid.New()
	require.NoError(t, patients.Upsert(ctx, &models.PatientProfile{
		PatientID:  patientID,
		Age:        42,
		Gender:     "female",
		BloodGroup: "A+",
		Height:     168,
		Weight:     61,
	}))

	sessions := session.NewTracker(patients)
	m := metrics.NewManager()
	acquisition := poller.New(
		device.NewReader(newSensor(t).URL, time.Second),
		prediction.NewClient(newInference(t).URL, time.Second),
		store, sessions, zap.NewNop(),
		poller.WithRecorder(m),
	)

	jwtService := auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	token, err := jwtService.GenerateAccessToken(patientID, time.Minute)
	require.NoError(t, err)

	router := server.New(&server.Dependencies{
		Config:       cfg,
		Logger:       zap.NewNop(),
		Metrics:      m,
		JWT:          jwtService,
		Pages:        pagination.NewRegistry(store, cfg.Pagination.PageSize, zap.NewNop()),
		Store:        store,
		Uploader:     acquisition,
		Sessions:     sessions,
		HealthChecks: map[string]handlers.HealthChecker{"database": db},
	})
	gin.SetMode(gin.TestMode)

	do := func(method, target string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, target, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	// Upload five readings; heart rates 60..64
	for range 5 {
		w := do(http.MethodPost, "/api/v1/vitals/upload")
		require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
		assert.Contains(t, w.Body.String(), `"outcome":"stored"`)
	}

	page := func(w *httptest.ResponseRecorder) handlers.PageResponse {
		t.Helper()
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var p handlers.PageResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
		return p
	}

	first := page(do(http.MethodGet, "/api/v1/vitals"))
	require.Len(t, first.Readings, 3)
	assert.Equal(t, 64, *first.Readings[0].HeartRate)
	assert.Nil(t, first.Readings[0].SpO2)
	require.NotNil(t, first.Readings[0].Prediction)
	assert.Equal(t, "normal", *first.Readings[0].Prediction)
	assert.True(t, first.HasNext)
	assert.False(t, first.HasPrev)

	second := page(do(http.MethodGet, "/api/v1/vitals?direction=next"))
	require.Len(t, second.Readings, 2)
	assert.Equal(t, 61, *second.Readings[0].HeartRate)
	assert.Equal(t, 4, second.Readings[0].RowNumber)
	assert.False(t, second.HasNext)
	assert.True(t, second.HasPrev)

	back := page(do(http.MethodGet, "/api/v1/vitals?direction=prev"))
	require.Len(t, back.Readings, 3)
	assert.Equal(t, first.Readings[0].ID, back.Readings[0].ID)
	assert.False(t, back.HasPrev)
	assert.Equal(t, 1, back.PageNumber)

	// A new reading appears at the top after a refresh
	require.Equal(t, http.StatusAccepted, do(http.MethodPost, "/api/v1/vitals/upload").Code)
	refreshed := page(do(http.MethodPost, "/api/v1/vitals/refresh"))
	assert.Equal(t, 65, *refreshed.Readings[0].HeartRate)

	w := do(http.MethodGet, "/api/v1/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"ok"`)
}

func TestUploadWithoutProfile(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDatabase(t)

	store := repository.NewPostgresVitalsRepository(db.DB)
	sessions := session.NewTracker(repository.NewPostgresPatientRepository(db.DB))
	patientID := uuid.New()
	sessions.SetActive(patientID)

	acquisition := poller.New(
		device.NewReader(newSensor(t).URL, time.Second),
		prediction.NewClient(newInference(t).URL, time.Second),
		store, sessions, zap.NewNop(),
	)

	res := acquisition.Trigger(context.Background(), patientID)
	assert.Equal(t, poller.OutcomeNoPatient, res.Outcome)
	assert.ErrorIs(t, res.Err, repository.ErrPatientNotFound)

	readings, err := store.Query(context.Background(), models.VitalsQuery{PatientID: patientID})
	require.NoError(t, err)
	assert.Empty(t, readings)
}
