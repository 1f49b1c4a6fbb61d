// SPDX-License-Identifier: MIT

package tracker

import "github.com/redis/go-redis/v9"

// completionScript is the atomic increment-and-maybe-finalize operation.
//
// KEYS[1] is the session hash, ARGV[1] the 0-based slot index. The hash
// stores the processed slots as a string of '0'/'1' characters of length
// `expected`; Lua string positions are 1-based, so the script converts
// once and nowhere else.
//
// Running as a single EVAL makes steps check-validate-mark-count-finalize
// indivisible: no two concurrent invocations can both observe the last
// pending slot, so exactly one caller per session receives FINALIZED.
var completionScript = redis.NewScript(`
local expected = redis.call('HGET', KEYS[1], 'expected')
local slots = redis.call('HGET', KEYS[1], 'slots')
if not expected or not slots then
  return 'MISSING_DATA'
end
expected = tonumber(expected)
if not expected or #slots ~= expected then
  return 'MISSING_DATA'
end
if redis.call('HGET', KEYS[1], 'finalized') == '1' then
  return 'ALREADY_FINALIZED'
end
local idx = tonumber(ARGV[1])
if not idx or idx < 0 or idx >= expected then
  return 'INVALID_ORDER_INDEX'
end
local pos = idx + 1
if string.sub(slots, pos, pos) == '1' then
  return 'DUPLICATE_ORDER_INDEX'
end
slots = string.sub(slots, 1, pos - 1) .. '1' .. string.sub(slots, pos + 1)
redis.call('HSET', KEYS[1], 'slots', slots)
local processed = 0
for i = 1, #slots do
  if string.sub(slots, i, i) == '1' then
    processed = processed + 1
  end
end
if processed >= expected then
  redis.call('HSET', KEYS[1], 'finalized', '1')
  return 'FINALIZED'
end
return 'PROCESSED_SUBMISSION'
`)
