// internal/service/reservation/infrastructure/mysql.go
package infrastructure

import (
	"fmt"

	"github.com/go-sql-driver/mysql"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"

	"stockgate/internal/pkg/bootstrap"
)

// NewDB 建立 MySQL 连接并迁移表结构
// TranslateError 开启后，唯一键冲突会被翻译成 gorm.ErrDuplicatedKey，
// 幂等表的去重逻辑依赖这一点
func NewDB(cfg bootstrap.MysqlConfig) (*gorm.DB, error) {
	dsnCfg := mysql.NewConfig()
	dsnCfg.Net = "tcp"
	dsnCfg.Addr = cfg.Addr
	dsnCfg.User = cfg.User
	dsnCfg.Passwd = cfg.Password
	dsnCfg.DBName = cfg.Database
	dsnCfg.ParseTime = true

	db, err := gorm.Open(gormmysql.Open(dsnCfg.FormatDSN()), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mysql at %s: %w", cfg.Addr, err)
	}

	if err := db.AutoMigrate(&ProductModel{}, &OrderModel{}, &ProcessedEventModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return db, nil
}
