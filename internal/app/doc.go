// Package app 组装秒杀服务：配置加载、依赖构建、HTTP 路由、预热任务和
// 后台消费者，并以 xrun 服务的形式运行。
package app
