package xseckill

import "github.com/redis/go-redis/v9"

// admissionScript 原子准入。
//
//	KEYS[1] 库存 key    KEYS[2] 已下单用户集合    KEYS[3] 订单流
//	ARGV[1] userId      ARGV[2] orderId           ARGV[3] voucherId
//
// 返回 0 准入 / 1 库存不足 / 2 重复下单。库存 key 不存在视为库存不足。
var admissionScript = redis.NewScript(`
local stock = tonumber(redis.call('GET', KEYS[1]))
if stock == nil or stock <= 0 then
	return 1
end
if redis.call('SISMEMBER', KEYS[2], ARGV[1]) == 1 then
	return 2
end
redis.call('INCRBY', KEYS[1], -1)
redis.call('SADD', KEYS[2], ARGV[1])
redis.call('XADD', KEYS[3], '*', 'userId', ARGV[1], 'voucherId', ARGV[3], 'id', ARGV[2])
return 0
`)
