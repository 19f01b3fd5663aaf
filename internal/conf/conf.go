package conf

import (
	"encoding/json"
	"fmt"
	"time"
)

// Bootstrap 配置根节点
type Bootstrap struct {
	Server      *Server      `json:"server"`
	Data        *Data        `json:"data"`
	Payment     *Payment     `json:"payment"`
	Recharge    *Recharge    `json:"recharge"`
	UserService *UserService `json:"user_service"`
	Cron        *Cron        `json:"cron"`
}

// Server HTTP 服务配置
type Server struct {
	Http *Server_HTTP `json:"http"`
}

type Server_HTTP struct {
	Network string   `json:"network"`
	Addr    string   `json:"addr"`
	Timeout Duration `json:"timeout"`
}

// Data 数据层配置
type Data struct {
	Database *Data_Database `json:"database"`
	Redis    *Data_Redis    `json:"redis"`
	Rocketmq *Data_Rocketmq `json:"rocketmq"`
}

type Data_Database struct {
	Driver      string `json:"driver"`
	Source      string `json:"source"`
	AutoMigrate bool   `json:"auto_migrate"`
}

type Data_Redis struct {
	Addr         string   `json:"addr"`
	Password     string   `json:"password"`
	Db           int      `json:"db"`
	ReadTimeout  Duration `json:"read_timeout"`
	WriteTimeout Duration `json:"write_timeout"`
}

type Data_Rocketmq struct {
	Enabled     bool     `json:"enabled"`
	NameServers []string `json:"name_servers"`
	GroupName   string   `json:"group_name"`
	RetryTimes  int32    `json:"retry_times"`
	WalletTopic string   `json:"wallet_topic"` // 钱包变动事件（送礼消费 / 收益入账）
	WealthTopic string   `json:"wealth_topic"` // 充值成功事件（财富等级更新）
}

// Payment 支付渠道配置
type Payment struct {
	Wechat   *Payment_Wechat   `json:"wechat"`
	Razorpay *Payment_Razorpay `json:"razorpay"`
}

type Payment_Wechat struct {
	Enabled      bool   `json:"enabled"`
	AppID        string `json:"app_id"`
	MchID        string `json:"mch_id"`
	MchKey       string `json:"mch_key"` // APIv3 key
	MchSerialNum string `json:"mch_serial_num"`
	KeyPath      string `json:"key_path"`
	NotifyURL    string `json:"notify_url"`
	Description  string `json:"description"`
}

type Payment_Razorpay struct {
	Enabled       bool   `json:"enabled"`
	KeyID         string `json:"key_id"`
	KeySecret     string `json:"key_secret"`
	WebhookSecret string `json:"webhook_secret"`
	Currency      string `json:"currency"`
}

// Recharge 充值订单配置
type Recharge struct {
	ExpireAfter    Duration `json:"expire_after"`
	ReconcileGrace Duration `json:"reconcile_grace"`
	GatewayTimeout Duration `json:"gateway_timeout"`
	LockExpiry     Duration `json:"lock_expiry"`
	SweepBatch     int32    `json:"sweep_batch"`
	Currency       string   `json:"currency"`
	WalletCurrency string   `json:"wallet_currency"`
}

// UserService 用户服务配置
type UserService struct {
	Endpoint string   `json:"endpoint"`
	Timeout  Duration `json:"timeout"`
}

// Cron 定时任务配置
type Cron struct {
	ReconcileSpec string   `json:"reconcile_spec"`
	ExpireSpec    string   `json:"expire_spec"`
	RunTimeout    Duration `json:"run_timeout"`
}

// Duration 支持 "5s"、"24h" 形式的配置值
type Duration struct {
	time.Duration
}

func (d *Duration) AsDuration() time.Duration {
	if d == nil {
		return 0
	}
	return d.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
		return nil
	case string:
		if value == "" {
			d.Duration = 0
			return nil
		}
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		d.Duration = parsed
		return nil
	default:
		return fmt.Errorf("invalid duration: %s", string(b))
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}
