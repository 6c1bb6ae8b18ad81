// Package xconf 提供基于 koanf 的配置加载。
//
// 支持 YAML/JSON 文件与字节数据两种来源，可选用环境变量覆盖（前缀 + 下划线分隔，
// 例如 XSECKILL_REDIS_ADDR 覆盖 redis.addr）。
//
//	cfg, err := xconf.New("config.yaml", xconf.WithEnvPrefix("XSECKILL_"))
//	var app AppConfig
//	err = cfg.Unmarshal("", &app)
//
// 反序列化使用 koanf 标签，时长字段支持 "2s"、"10m" 等写法。
package xconf
