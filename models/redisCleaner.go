package models

import (
	"bitbucket.org/mmsoftwarehouse/salepay_backend/utils"
)

type RedisCleaner interface {
	RemoveInstanceRedis() error // remove one
	RemoveAllRedis() error      // remove list & map if exists
}

// remove both item & list + map
func RemoveRedisBoth[T RedisCleaner](obj T) error {
	if err := obj.RemoveInstanceRedis(); err != nil {
		return err
	}
	if err := obj.RemoveAllRedis(); err != nil {
		return err
	}
	return nil
}

func (obj Account) RemoveInstanceRedis() error {
	if err := utils.RemoveRedisItem[Account](obj.ID); err != nil {
		return err
	}
	return nil
}

func (obj Account) RemoveAllRedis() error {
	if err := utils.RemoveRedisList[AllAccount](obj.BusinessId); err != nil {
		return err
	}
	if err := utils.RemoveRedisMap[AllAccount](obj.BusinessId); err != nil {
		return err
	}
	return nil
}

func (obj Party) RemoveInstanceRedis() error {
	if err := utils.RemoveRedisItem[Party](obj.ID); err != nil {
		return err
	}
	return nil
}

func (obj Party) RemoveAllRedis() error {
	if err := utils.RemoveRedisList[AllParty](obj.BusinessId); err != nil {
		return err
	}
	if err := utils.RemoveRedisMap[AllParty](obj.BusinessId); err != nil {
		return err
	}
	return nil
}

func (obj SaleDevice) RemoveInstanceRedis() error {
	if err := utils.RemoveRedisItem[SaleDevice](obj.ID); err != nil {
		return err
	}
	return nil
}

func (obj SaleDevice) RemoveAllRedis() error {
	if err := utils.RemoveRedisList[AllDevice](obj.BusinessId); err != nil {
		return err
	}
	if err := utils.RemoveRedisMap[AllDevice](obj.BusinessId); err != nil {
		return err
	}
	return nil
}

func (obj StatementJournal) RemoveInstanceRedis() error {
	if err := utils.RemoveRedisItem[StatementJournal](obj.ID); err != nil {
		return err
	}
	return nil
}

func (obj StatementJournal) RemoveAllRedis() error {
	if err := utils.RemoveRedisList[AllJournal](obj.BusinessId); err != nil {
		return err
	}
	if err := utils.RemoveRedisMap[AllJournal](obj.BusinessId); err != nil {
		return err
	}
	return nil
}
