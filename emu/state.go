package emu

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
)

// Save state format constants
const (
	stateVersion    = 1
	stateMagic      = "blazeVTState"
	stateHeaderSize = 22 // magic(12) + version(2) + romCRC(4) + dataCRC(4)
)

// SerializeSize returns the total size in bytes needed for a save
// state. The CPU collaborator is external and keeps its own state.
func (m *Machine) SerializeSize() int {
	return stateHeaderSize +
		len(m.mapper.vram) +
		len(m.mapper.sram) +
		16 + // mapper control file
		shadowRegCount +
		10 + // mapper latches, two-shot state, chargen row
		m.duartSize() +
		m.eepromSize() +
		2 + // keyboard LEDs + bell/click flags
		m.ssuSize() +
		19 // VMP counters
}

func (m *Machine) duartSize() int {
	// Per channel: mr(2), mrPtr(1), csr(1), sr(1), enables(2),
	// fifo(3), count(1), thr(2), shifter(2), countdowns(8) = 23.
	// Shared: acr, imr, opr, input lines, ipcr delta, input change,
	// counter(4), counter flags(2), ctu, ctl = 14.
	return 2*23 + 14
}

func (m *Machine) eepromSize() int {
	return len(m.eeprom.words)*2 + 1 + 4
}

func (m *Machine) ssuSize() int {
	return 3 + len(m.ssu.sessions)*5
}

// Serialize creates a save state and returns it as a byte slice.
// Host-side buffers (comm pipes, session data in flight to the host)
// are not part of the machine and are excluded.
func (m *Machine) Serialize() ([]byte, error) {
	size := m.SerializeSize()
	data := make([]byte, size)

	copy(data[0:12], stateMagic)
	binary.LittleEndian.PutUint16(data[12:14], stateVersion)
	binary.LittleEndian.PutUint32(data[14:18], crc32.ChecksumIEEE(m.mapper.rom))

	offset := stateHeaderSize
	offset = m.serializeMapper(data, offset)
	offset = m.serializeDUART(data, offset)
	offset = m.serializeEEPROM(data, offset)
	offset = m.serializeKeyboard(data, offset)
	offset = m.serializeSSU(data, offset)
	_ = m.serializeVMP(data, offset)

	dataCRC := crc32.ChecksumIEEE(data[stateHeaderSize:])
	binary.LittleEndian.PutUint32(data[18:22], dataCRC)

	return data, nil
}

// Deserialize restores machine state from a save state byte slice.
func (m *Machine) Deserialize(data []byte) error {
	if err := m.VerifyState(data); err != nil {
		return err
	}

	offset := stateHeaderSize
	offset = m.deserializeMapper(data, offset)
	offset = m.deserializeDUART(data, offset)
	offset = m.deserializeEEPROM(data, offset)
	offset = m.deserializeKeyboard(data, offset)
	offset = m.deserializeSSU(data, offset)
	m.deserializeVMP(data, offset)

	return nil
}

// VerifyState checks whether a save state blob is valid for this
// machine without loading it.
func (m *Machine) VerifyState(data []byte) error {
	if len(data) < m.SerializeSize() {
		return errors.New("save state too short")
	}
	if string(data[0:12]) != stateMagic {
		return errors.New("invalid save state magic")
	}
	if binary.LittleEndian.Uint16(data[12:14]) > stateVersion {
		return errors.New("unsupported save state version")
	}
	if binary.LittleEndian.Uint32(data[14:18]) != crc32.ChecksumIEEE(m.mapper.rom) {
		return errors.New("save state is for a different ROM")
	}
	expectedCRC := binary.LittleEndian.Uint32(data[18:22])
	if expectedCRC != crc32.ChecksumIEEE(data[stateHeaderSize:]) {
		return errors.New("save state data is corrupted")
	}
	return nil
}

func putBool(data []byte, offset int, b bool) int {
	if b {
		data[offset] = 1
	} else {
		data[offset] = 0
	}
	return offset + 1
}

func getBool(data []byte, offset int) (bool, int) {
	return data[offset] != 0, offset + 1
}

func (m *Machine) serializeMapper(data []byte, offset int) int {
	mp := m.mapper

	copy(data[offset:], mp.vram)
	offset += len(mp.vram)
	copy(data[offset:], mp.sram[:])
	offset += len(mp.sram)
	copy(data[offset:], mp.ctrl[:])
	offset += len(mp.ctrl)
	copy(data[offset:], mp.shadow[:])
	offset += len(mp.shadow)

	offset = putBool(data, offset, mp.geomHalf)
	offset = putBool(data, offset, mp.fontHalf)
	offset = putBool(data, offset, mp.commitPending)
	data[offset] = uint8(mp.geomShot)
	offset++
	data[offset] = mp.geom[0]
	offset++
	data[offset] = mp.geom[1]
	offset++
	data[offset] = uint8(mp.fontShot)
	offset++
	data[offset] = mp.fontOff[0]
	offset++
	data[offset] = mp.fontOff[1]
	offset++
	data[offset] = mp.chargenRow
	offset++

	return offset
}

func (m *Machine) deserializeMapper(data []byte, offset int) int {
	mp := m.mapper

	copy(mp.vram, data[offset:offset+len(mp.vram)])
	offset += len(mp.vram)
	copy(mp.sram[:], data[offset:offset+len(mp.sram)])
	offset += len(mp.sram)
	copy(mp.ctrl[:], data[offset:offset+len(mp.ctrl)])
	offset += len(mp.ctrl)
	copy(mp.shadow[:], data[offset:offset+len(mp.shadow)])
	offset += len(mp.shadow)

	mp.geomHalf, offset = getBool(data, offset)
	mp.fontHalf, offset = getBool(data, offset)
	mp.commitPending, offset = getBool(data, offset)
	mp.geomShot = int(data[offset])
	offset++
	mp.geom[0] = data[offset]
	offset++
	mp.geom[1] = data[offset]
	offset++
	mp.fontShot = int(data[offset])
	offset++
	mp.fontOff[0] = data[offset]
	offset++
	mp.fontOff[1] = data[offset]
	offset++
	mp.chargenRow = data[offset]
	offset++
	mp.primed = mp.ctrl[RegSession1&0x0F] == 0xA0

	return offset
}

func serializeChannel(data []byte, offset int, c *duartChannel) int {
	data[offset] = c.mr[0]
	offset++
	data[offset] = c.mr[1]
	offset++
	data[offset] = uint8(c.mrPtr)
	offset++
	data[offset] = c.csr
	offset++
	data[offset] = c.sr
	offset++
	offset = putBool(data, offset, c.rxEnabled)
	offset = putBool(data, offset, c.txEnabled)
	copy(data[offset:], c.rxFIFO[:])
	offset += rxFIFODepth
	data[offset] = uint8(c.rxCount)
	offset++
	data[offset] = c.thr
	offset++
	offset = putBool(data, offset, c.thrFull)
	data[offset] = c.txShift
	offset++
	offset = putBool(data, offset, c.txActive)
	binary.LittleEndian.PutUint32(data[offset:], uint32(c.txCountdown))
	offset += 4
	binary.LittleEndian.PutUint32(data[offset:], uint32(c.rxCountdown))
	offset += 4
	return offset
}

func deserializeChannel(data []byte, offset int, c *duartChannel) int {
	c.mr[0] = data[offset]
	offset++
	c.mr[1] = data[offset]
	offset++
	c.mrPtr = int(data[offset])
	offset++
	c.csr = data[offset]
	offset++
	c.sr = data[offset]
	offset++
	c.rxEnabled, offset = getBool(data, offset)
	c.txEnabled, offset = getBool(data, offset)
	copy(c.rxFIFO[:], data[offset:offset+rxFIFODepth])
	offset += rxFIFODepth
	c.rxCount = int(data[offset])
	offset++
	c.thr = data[offset]
	offset++
	c.thrFull, offset = getBool(data, offset)
	c.txShift = data[offset]
	offset++
	c.txActive, offset = getBool(data, offset)
	c.txCountdown = int(int32(binary.LittleEndian.Uint32(data[offset:])))
	offset += 4
	c.rxCountdown = int(int32(binary.LittleEndian.Uint32(data[offset:])))
	offset += 4
	// Staged transport bytes are host-side and start empty.
	c.rxPending = nil
	c.txDone = nil
	return offset
}

func (m *Machine) serializeDUART(data []byte, offset int) int {
	d := m.duart
	offset = serializeChannel(data, offset, &d.ch[ChanA])
	offset = serializeChannel(data, offset, &d.ch[ChanB])
	data[offset] = d.acr
	offset++
	data[offset] = d.imr
	offset++
	data[offset] = d.opr
	offset++
	data[offset] = d.inputLines
	offset++
	data[offset] = d.ipcrDelta
	offset++
	offset = putBool(data, offset, d.inputChange)
	binary.LittleEndian.PutUint32(data[offset:], uint32(d.counter))
	offset += 4
	offset = putBool(data, offset, d.counterRunning)
	offset = putBool(data, offset, d.counterReady)
	data[offset] = d.ctu
	offset++
	data[offset] = d.ctl
	offset++
	return offset
}

func (m *Machine) deserializeDUART(data []byte, offset int) int {
	d := m.duart
	offset = deserializeChannel(data, offset, &d.ch[ChanA])
	offset = deserializeChannel(data, offset, &d.ch[ChanB])
	d.acr = data[offset]
	offset++
	d.imr = data[offset]
	offset++
	d.opr = data[offset]
	offset++
	d.inputLines = data[offset]
	offset++
	d.ipcrDelta = data[offset]
	offset++
	d.inputChange, offset = getBool(data, offset)
	d.counter = int(int32(binary.LittleEndian.Uint32(data[offset:])))
	offset += 4
	d.counterRunning, offset = getBool(data, offset)
	d.counterReady, offset = getBool(data, offset)
	d.ctu = data[offset]
	offset++
	d.ctl = data[offset]
	offset++
	return offset
}

func (m *Machine) serializeEEPROM(data []byte, offset int) int {
	e := m.eeprom
	for _, w := range e.words {
		binary.LittleEndian.PutUint16(data[offset:], w)
		offset += 2
	}
	offset = putBool(data, offset, e.writeOK)
	binary.LittleEndian.PutUint32(data[offset:], uint32(e.busy))
	offset += 4
	return offset
}

func (m *Machine) deserializeEEPROM(data []byte, offset int) int {
	e := m.eeprom
	for i := range e.words {
		e.words[i] = binary.LittleEndian.Uint16(data[offset:])
		offset += 2
	}
	e.writeOK, offset = getBool(data, offset)
	e.busy = int(int32(binary.LittleEndian.Uint32(data[offset:])))
	offset += 4
	// Any half-shifted transaction is abandoned.
	e.state = eeIdle
	e.pending = nil
	e.nbits = 0
	return offset
}

func (m *Machine) serializeKeyboard(data []byte, offset int) int {
	k := m.keyboard
	data[offset] = k.leds
	offset++
	var flags uint8
	if k.bellOn {
		flags |= 0x01
	}
	if k.clickOn {
		flags |= 0x02
	}
	data[offset] = flags
	offset++
	return offset
}

func (m *Machine) deserializeKeyboard(data []byte, offset int) int {
	k := m.keyboard
	k.leds = data[offset]
	offset++
	k.bellOn = data[offset]&0x01 != 0
	k.clickOn = data[offset]&0x02 != 0
	offset++
	return offset
}

func (m *Machine) serializeSSU(data []byte, offset int) int {
	s := m.ssu
	data[offset] = uint8(s.state)
	offset++
	data[offset] = uint8(s.curIn)
	offset++
	data[offset] = uint8(s.curOut)
	offset++
	for i := range s.sessions {
		sess := &s.sessions[i]
		offset = putBool(data, offset, sess.open)
		binary.LittleEndian.PutUint16(data[offset:], sess.inCredit)
		offset += 2
		binary.LittleEndian.PutUint16(data[offset:], sess.outCredit)
		offset += 2
	}
	return offset
}

func (m *Machine) deserializeSSU(data []byte, offset int) int {
	s := m.ssu
	s.state = SSUState(data[offset])
	offset++
	s.curIn = int(data[offset])
	offset++
	s.curOut = int(data[offset])
	offset++
	for i := range s.sessions {
		sess := &s.sessions[i]
		sess.open, offset = getBool(data, offset)
		sess.inCredit = binary.LittleEndian.Uint16(data[offset:])
		offset += 2
		sess.outCredit = binary.LittleEndian.Uint16(data[offset:])
		offset += 2
		sess.toHost = nil
	}
	s.ps = psData
	return offset
}

func (m *Machine) serializeVMP(data []byte, offset int) int {
	v := m.vmp
	binary.LittleEndian.PutUint16(data[offset:], uint16(v.line))
	offset += 2
	data[offset] = uint8(v.half)
	offset++
	binary.LittleEndian.PutUint32(data[offset:], uint32(v.accumFP))
	offset += 4
	offset = putBool(data, offset, v.csync)
	offset = putBool(data, offset, v.vblankHold)
	binary.LittleEndian.PutUint16(data[offset:], uint16(v.commitHold))
	offset += 2
	binary.LittleEndian.PutUint64(data[offset:], v.frameCount)
	offset += 8
	return offset
}

func (m *Machine) deserializeVMP(data []byte, offset int) int {
	v := m.vmp
	v.line = int(binary.LittleEndian.Uint16(data[offset:]))
	offset += 2
	v.half = int(data[offset])
	offset++
	v.accumFP = int(int32(binary.LittleEndian.Uint32(data[offset:])))
	offset += 4
	v.csync, offset = getBool(data, offset)
	v.vblankHold, offset = getBool(data, offset)
	v.commitHold = int(binary.LittleEndian.Uint16(data[offset:]))
	offset += 2
	v.frameCount = binary.LittleEndian.Uint64(data[offset:])
	offset += 8
	v.retime()
	v.pendingFrame = nil
	return offset
}
