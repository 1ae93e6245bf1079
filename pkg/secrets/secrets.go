package secrets

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"go.uber.org/zap"

	"github.com/zqian/my-learning-analytics/config"
)

// ErrEmptySecret 密钥存在但没有字符串值
var ErrEmptySecret = errors.New("secret has no string value")

// ManagerAPI Secrets Manager 客户端中用到的方法，便于测试替换
type ManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// Resolver 将配置中的 *_secret_id 解析为实际密码
type Resolver struct {
	api    ManagerAPI
	logger *zap.Logger
}

// NewResolver 使用默认 AWS 凭证链创建 Resolver
func NewResolver(ctx context.Context, logger *zap.Logger) (*Resolver, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("加载 AWS 配置失败: %w", err)
	}
	return NewResolverWithAPI(secretsmanager.NewFromConfig(awsCfg), logger), nil
}

// NewResolverWithAPI 使用指定客户端创建 Resolver
func NewResolverWithAPI(api ManagerAPI, logger *zap.Logger) *Resolver {
	return &Resolver{api: api, logger: logger}
}

// Get 读取单个密钥的字符串值（不记录密钥内容）
func (r *Resolver) Get(ctx context.Context, secretID string) (string, error) {
	out, err := r.api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretID),
	})
	if err != nil {
		return "", fmt.Errorf("读取密钥 %s 失败: %w", secretID, err)
	}
	if out.SecretString == nil || *out.SecretString == "" {
		return "", fmt.Errorf("密钥 %s: %w", secretID, ErrEmptySecret)
	}
	r.logger.Debug("已读取密钥", zap.String("secret_id", secretID))
	return *out.SecretString, nil
}

// ResolveConfig 为运营库、数据仓库与 LRS 填充来自 Secrets Manager 的密码
func (r *Resolver) ResolveConfig(ctx context.Context, cfg *config.Config) error {
	targets := []*config.DatabaseConfig{&cfg.Store, &cfg.Warehouse.DatabaseConfig, &cfg.LRS.DatabaseConfig}
	for _, db := range targets {
		if db.PasswordSecretID == "" {
			continue
		}
		password, err := r.Get(ctx, db.PasswordSecretID)
		if err != nil {
			return err
		}
		db.Password = password
	}
	return nil
}

// NeedsResolution 是否有任一连接配置了 secret id
func NeedsResolution(cfg *config.Config) bool {
	return cfg.Store.PasswordSecretID != "" ||
		cfg.Warehouse.PasswordSecretID != "" ||
		cfg.LRS.PasswordSecretID != ""
}
