package router

import (
	userapp "github.com/coursebind/user-service/internal/application"
	"github.com/coursebind/user-service/internal/container"
	pginfra "github.com/coursebind/user-service/internal/infrastructure/postgres"
	handlers "github.com/coursebind/user-service/internal/interface/http"
	"github.com/coursebind/user-service/internal/router/modules"
)

func buildUserModule() *modules.UserModule {
	repo := pginfra.NewUserRepository(container.GetPGPool())

	service := userapp.NewService(
		repo,
		container.GetHasher(),
		container.GetJWT(),
		container.GetLogger(),
	)

	handler := handlers.NewUserHandler(service, container.GetLogger())

	return modules.NewUserModule(handler, container.GetJWT())
}

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup to wire up all modules
func InitModules(r *Registry) {
	r.Add(buildUserModule())
}
