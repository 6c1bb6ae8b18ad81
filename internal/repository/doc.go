// Package repository 基于 gorm + PostgreSQL 实现关系型存储。
//
// 提供两个存储：
//   - OrderStore：实现 xseckill.Store，秒杀履约阶段的库存扣减与订单写入
//   - ShopStore：商铺读写与秒杀券创建，作为缓存门面的回源数据
//
// 事务通过 context 传递：WithTransaction 将 *gorm.DB 事务句柄放入 ctx，
// 同一 ctx 内的后续调用自动复用该事务。
package repository
