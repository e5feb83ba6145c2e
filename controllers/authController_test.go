package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"jagruk-be/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
	"go.uber.org/zap"
)

func authControllerRouter(ac *AuthController) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/auth/register", ac.RegisterUser)
	r.POST("/auth/login", ac.LoginUser)
	return r
}

func userDoc(password string) bson.D {
	user := models.User{Password: password}
	if err := user.HashPassword(); err != nil {
		panic(err)
	}
	return bson.D{
		{Key: "_id", Value: primitive.NewObjectID()},
		{Key: "name", Value: "Ravi"},
		{Key: "email", Value: "ravi@example.com"},
		{Key: "password", Value: user.Password},
		{Key: "createdAt", Value: time.Now()},
		{Key: "updatedAt", Value: time.Now()},
	}
}

func TestRegisterUser(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	if mt.Client != nil {
		defer mt.Client.Disconnect(context.Background())
	}

	mt.Run("rejects short password", func(mt *mtest.T) {
		ac := &AuthController{Users: mt.Coll, Log: zap.NewNop().Sugar()}
		w := doJSON(authControllerRouter(ac), http.MethodPost, "/auth/register", gin.H{
			"name":     "Ravi",
			"email":    "ravi@example.com",
			"password": "123",
		})
		assert.Equal(mt, http.StatusBadRequest, w.Code)
	})

	mt.Run("rejects duplicate email", func(mt *mtest.T) {
		ac := &AuthController{Users: mt.Coll, Log: zap.NewNop().Sugar()}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "jagruk.users", mtest.FirstBatch,
			bson.D{{Key: "n", Value: 1}}))

		w := doJSON(authControllerRouter(ac), http.MethodPost, "/auth/register", gin.H{
			"name":     "Ravi",
			"email":    "ravi@example.com",
			"password": "secret123",
		})
		assert.Equal(mt, http.StatusBadRequest, w.Code)
		assert.Contains(mt, w.Body.String(), "already exists")
	})

	mt.Run("creates an account", func(mt *mtest.T) {
		ac := &AuthController{Users: mt.Coll, Log: zap.NewNop().Sugar()}
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "jagruk.users", mtest.FirstBatch,
				bson.D{{Key: "n", Value: 0}}),
			mtest.CreateSuccessResponse(),
		)

		w := doJSON(authControllerRouter(ac), http.MethodPost, "/auth/register", gin.H{
			"name":     "Ravi",
			"email":    "ravi@example.com",
			"password": "secret123",
		})
		require.Equal(mt, http.StatusCreated, w.Code)

		var body map[string]any
		require.NoError(mt, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(mt, "ravi@example.com", body["email"])
		assert.NotContains(mt, body, "password")
	})
}

func TestLoginUser(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	if mt.Client != nil {
		defer mt.Client.Disconnect(context.Background())
	}

	mt.Run("unknown email", func(mt *mtest.T) {
		ac := &AuthController{Users: mt.Coll, Log: zap.NewNop().Sugar()}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "jagruk.users", mtest.FirstBatch))

		w := doJSON(authControllerRouter(ac), http.MethodPost, "/auth/login", gin.H{
			"email":    "nobody@example.com",
			"password": "secret123",
		})
		assert.Equal(mt, http.StatusUnauthorized, w.Code)
	})

	mt.Run("wrong password", func(mt *mtest.T) {
		ac := &AuthController{Users: mt.Coll, Log: zap.NewNop().Sugar()}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "jagruk.users", mtest.FirstBatch,
			userDoc("secret123")))

		w := doJSON(authControllerRouter(ac), http.MethodPost, "/auth/login", gin.H{
			"email":    "ravi@example.com",
			"password": "wrong-password",
		})
		assert.Equal(mt, http.StatusUnauthorized, w.Code)
	})

	mt.Run("issues a token and cookie", func(mt *mtest.T) {
		mt.Setenv("JWT_SECRET", "test-secret")

		ac := &AuthController{Users: mt.Coll, Log: zap.NewNop().Sugar()}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "jagruk.users", mtest.FirstBatch,
			userDoc("secret123")))

		w := doJSON(authControllerRouter(ac), http.MethodPost, "/auth/login", gin.H{
			"email":    "ravi@example.com",
			"password": "secret123",
		})
		require.Equal(mt, http.StatusOK, w.Code)

		var body map[string]any
		require.NoError(mt, json.Unmarshal(w.Body.Bytes(), &body))
		assert.NotEmpty(mt, body["token"])

		cookies := w.Result().Cookies()
		require.Len(mt, cookies, 1)
		assert.Equal(mt, "auth_token", cookies[0].Name)
		assert.True(mt, cookies[0].HttpOnly)
	})
}
