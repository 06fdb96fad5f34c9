package api

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ixugo/goddd/pkg/reason"
	"github.com/ixugo/goddd/pkg/web"
	"github.com/iztrace/leaderboard/internal/conf"
)

const (
	loginKeyTTL = time.Hour
	tokenTTL    = 24 * time.Hour
)

var errLoginKeyMissing = errors.New("登录密钥已失效，请刷新页面后重试")

// UserAPI 后台管理员登录
type UserAPI struct {
	conf *conf.Bootstrap
	key  *loginKey
	mu   *sync.Mutex
}

func NewUserAPI(conf *conf.Bootstrap) UserAPI {
	return UserAPI{conf: conf, key: &loginKey{}, mu: &sync.Mutex{}}
}

func RegisterUser(r gin.IRouter, api UserAPI, mid ...gin.HandlerFunc) {
	r.GET("/login/key", web.WrapH(api.getLoginKey))
	r.POST("/login", web.WrapH(api.login))
	r.PUT("/users", web.WrapHs(api.updateCredentials, mid...)...)
}

// loginKey 前端用公钥加密账号密码，密钥定期轮换
// 轮换后保留上一把私钥，避免刚取到旧公钥的请求解密失败
type loginKey struct {
	mu        sync.RWMutex
	current   *rsa.PrivateKey
	previous  *rsa.PrivateKey
	expiredAt time.Time
}

func (k *loginKey) public(now time.Time) (*rsa.PublicKey, error) {
	k.mu.RLock()
	if k.current != nil && now.Before(k.expiredAt) {
		defer k.mu.RUnlock()
		return &k.current.PublicKey, nil
	}
	k.mu.RUnlock()

	k.mu.Lock()
	defer k.mu.Unlock()
	if k.current != nil && now.Before(k.expiredAt) {
		return &k.current.PublicKey, nil
	}
	pri, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}
	k.previous, k.current = k.current, pri
	k.expiredAt = now.Add(loginKeyTTL)
	return &pri.PublicKey, nil
}

func (k *loginKey) decrypt(ciphertext string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, err
	}
	k.mu.RLock()
	keys := []*rsa.PrivateKey{k.current, k.previous}
	k.mu.RUnlock()

	err = errLoginKeyMissing
	for _, pri := range keys {
		if pri == nil {
			continue
		}
		var out []byte
		if out, err = rsa.DecryptOAEP(sha256.New(), rand.Reader, pri, data, nil); err == nil {
			return out, nil
		}
	}
	return nil, err
}

func encodePublicKey(pub *rsa.PublicKey) (string, error) {
	b, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", err
	}
	block := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: b})
	return base64.StdEncoding.EncodeToString(block), nil
}

func (api UserAPI) getLoginKey(_ *gin.Context, _ *struct{}) (gin.H, error) {
	pub, err := api.key.public(time.Now())
	if err != nil {
		return nil, reason.ErrServer.SetMsg(err.Error())
	}
	key, err := encodePublicKey(pub)
	if err != nil {
		return nil, reason.ErrServer.SetMsg(err.Error())
	}
	return gin.H{"key": key}, nil
}

type loginInput struct {
	// Data 公钥加密后的 {"username":"","password":""}
	Data string `json:"data" binding:"required"`
}

type loginOutput struct {
	Token     string    `json:"token"`
	User      string    `json:"user"`
	ExpiresAt time.Time `json:"expires_at"`
}

type credentials struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (api UserAPI) login(_ *gin.Context, in *loginInput) (*loginOutput, error) {
	body, err := api.key.decrypt(in.Data)
	if err != nil {
		return nil, reason.ErrBadRequest.Withf(`decrypt err[%s]`, err.Error())
	}
	var cred credentials
	if err := json.Unmarshal(body, &cred); err != nil {
		return nil, reason.ErrBadRequest.Withf(`credentials err[%s]`, err.Error())
	}

	api.mu.Lock()
	server := api.conf.Server
	api.mu.Unlock()
	if cred.Username != server.Username || cred.Password != server.Password {
		return nil, reason.ErrNameOrPasswd
	}

	expiresAt := time.Now().Add(tokenTTL)
	token, err := web.NewToken(
		web.NewClaimsData().SetUsername(cred.Username),
		server.HTTP.JwtSecret,
		web.WithExpiresAt(expiresAt),
	)
	if err != nil {
		return nil, reason.ErrServer.SetMsg("生成token失败: " + err.Error())
	}
	return &loginOutput{Token: token, User: cred.Username, ExpiresAt: expiresAt}, nil
}

// updateCredentials 修改管理员账号密码并写回配置文件
func (api UserAPI) updateCredentials(_ *gin.Context, in *credentials) (gin.H, error) {
	api.mu.Lock()
	defer api.mu.Unlock()

	prev := api.conf.Server
	api.conf.Server.Username = in.Username
	api.conf.Server.Password = in.Password
	if api.conf.ConfigPath == "" {
		return gin.H{"msg": "ok"}, nil
	}
	if err := conf.WriteConfig(api.conf, api.conf.ConfigPath); err != nil {
		api.conf.Server = prev
		return nil, reason.ErrServer.SetMsg("保存配置失败: " + err.Error())
	}
	return gin.H{"msg": "ok"}, nil
}
