package application_test

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/coursebind/user-service/internal/application"
	"github.com/coursebind/user-service/internal/domain/entity"
	"github.com/coursebind/user-service/internal/domain/repository"
	"github.com/coursebind/user-service/pkg/helpers"
)

// memoryRepo is a mutex-guarded in-memory repository. Create enforces
// the uniqueness invariant atomically, mirroring the Postgres unique
// indexes.
type memoryRepo struct {
	mu    sync.Mutex
	users map[string]*entity.User
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{users: make(map[string]*entity.User)}
}

func (r *memoryRepo) Create(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email || existing.Username == u.Username {
			return repository.ErrDuplicateKey
		}
	}
	u.ID = uuid.NewString()
	u.CreatedAt = time.Now()
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *memoryRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (r *memoryRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memoryRepo) GetByUsername(_ context.Context, username string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

// blindRepo hides existing users from the pre-check lookups so the
// conflict is only discovered by the atomic Create, like a lost race.
type blindRepo struct {
	*memoryRepo
}

func (r *blindRepo) GetByEmail(_ context.Context, _ string) (*entity.User, error) {
	return nil, repository.ErrNotFound
}

func (r *blindRepo) GetByUsername(_ context.Context, _ string) (*entity.User, error) {
	return nil, repository.ErrNotFound
}

func newTestService(repo repository.UserRepository) *application.Service {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return application.NewService(
		repo,
		helpers.NewPasswordHasher(bcrypt.MinCost),
		helpers.NewJWTManager("test-secret", 2*time.Hour),
		logger,
	)
}

func TestService_Register(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemoryRepo())

	u, err := svc.Register(ctx, application.RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "password123",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.Equal(t, entity.RoleStudent, u.Role, "role defaults to student")
	assert.NotEqual(t, "password123", u.PasswordHash)
	assert.False(t, u.CreatedAt.IsZero())
}

func TestService_Register_NormalizesEmail(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	svc := newTestService(repo)

	u, err := svc.Register(ctx, application.RegisterInput{
		Username: "alice",
		Email:    "  Alice@Example.COM ",
		Password: "password123",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", u.Email)

	// Login with mixed case still resolves the same account.
	res, err := svc.Login(ctx, "ALICE@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, u.ID, res.UserID)
}

func TestService_Register_ExplicitRole(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemoryRepo())

	u, err := svc.Register(ctx, application.RegisterInput{
		Username: "bob",
		Email:    "bob@example.com",
		Password: "password123",
		Role:     entity.RoleInstructor,
	})
	require.NoError(t, err)
	assert.Equal(t, entity.RoleInstructor, u.Role)
}

func TestService_Register_Duplicates(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemoryRepo())

	_, err := svc.Register(ctx, application.RegisterInput{
		Username: "alice", Email: "alice@example.com", Password: "password123",
	})
	require.NoError(t, err)

	_, err = svc.Register(ctx, application.RegisterInput{
		Username: "alice2", Email: "alice@example.com", Password: "password123",
	})
	assert.ErrorIs(t, err, application.ErrEmailInUse)

	_, err = svc.Register(ctx, application.RegisterInput{
		Username: "alice", Email: "alice2@example.com", Password: "password123",
	})
	assert.ErrorIs(t, err, application.ErrUsernameTaken)
}

func TestService_Register_RaceSurfacesDuplicateIdentity(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	svc := newTestService(&blindRepo{repo})

	_, err := svc.Register(ctx, application.RegisterInput{
		Username: "alice", Email: "alice@example.com", Password: "password123",
	})
	require.NoError(t, err)

	// Pre-checks see nothing; the atomic create reports the conflict.
	_, err = svc.Register(ctx, application.RegisterInput{
		Username: "alice", Email: "alice@example.com", Password: "password123",
	})
	assert.ErrorIs(t, err, application.ErrDuplicateIdentity)
}

func TestService_Register_ConcurrentSameEmail(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemoryRepo())

	const attempts = 8
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Register(ctx, application.RegisterInput{
				Username: "alice", Email: "alice@example.com", Password: "password123",
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	successes := 0
	for err := range errs {
		if err == nil {
			successes++
			continue
		}
		assert.True(t,
			err == application.ErrEmailInUse ||
				err == application.ErrUsernameTaken ||
				err == application.ErrDuplicateIdentity,
			"unexpected error: %v", err)
	}
	assert.Equal(t, 1, successes, "exactly one concurrent registration may win")
}

func TestService_Login(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemoryRepo())

	u, err := svc.Register(ctx, application.RegisterInput{
		Username: "alice", Email: "alice@example.com", Password: "password123",
	})
	require.NoError(t, err)

	res, err := svc.Login(ctx, "alice@example.com", "password123")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, u.ID, res.UserID)
	assert.Equal(t, "alice@example.com", res.Email)
	assert.Equal(t, entity.RoleStudent, res.Role)
	assert.WithinDuration(t, time.Now().Add(2*time.Hour), res.ExpiresAt, 5*time.Second)

	// The token embeds the claims snapshot.
	claims, err := svc.VerifyToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, "student", claims.Role)
}

func TestService_Login_InvalidCredentials(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemoryRepo())

	_, err := svc.Register(ctx, application.RegisterInput{
		Username: "alice", Email: "alice@example.com", Password: "password123",
	})
	require.NoError(t, err)

	_, wrongPwdErr := svc.Login(ctx, "alice@example.com", "password124")
	_, noUserErr := svc.Login(ctx, "nobody@example.com", "password123")

	// Wrong password and unknown email are indistinguishable to callers.
	assert.ErrorIs(t, wrongPwdErr, application.ErrInvalidCredentials)
	assert.ErrorIs(t, noUserErr, application.ErrInvalidCredentials)
	assert.Equal(t, wrongPwdErr.Error(), noUserErr.Error())
}

func TestService_GetProfile(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemoryRepo())

	u, err := svc.Register(ctx, application.RegisterInput{
		Username: "alice", Email: "alice@example.com", Password: "password123",
	})
	require.NoError(t, err)

	p, err := svc.GetProfile(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.ID, p.ID)
	assert.Equal(t, "alice", p.Username)
	assert.Equal(t, "alice@example.com", p.Email)
	assert.Equal(t, entity.RoleStudent, p.Role)

	_, err = svc.GetProfile(ctx, uuid.NewString())
	assert.ErrorIs(t, err, application.ErrUserNotFound)
}
