// Copyright (c) 2025 Stefano Scafiti
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
package exfat

import (
	"encoding/binary"
	"fmt"
)

// BootSectorsPerRegion is the fixed sector layout of the boot region: VBR
// (sector 0), 8 extended boot sectors (1-8), OEM parameters (sector 9),
// one reserved sector (10), and the checksum sector (11).
const BootSectorsPerRegion = 12

var exfatFSName = [8]byte{'E', 'X', 'F', 'A', 'T', ' ', ' ', ' '}

// VolumeBootRecord is sector 0 of the boot region.
type VolumeBootRecord struct {
	PartitionOffsetSectors   uint64
	VolumeLengthSectors      uint64
	FATOffsetSectors         uint32
	FATLengthSectors         uint32
	ClusterHeapOffsetSectors uint32
	ClusterCount             uint32
	RootDirectoryCluster     uint32
	VolumeSerialNumber       uint32
	FSRevision               uint16
	VolumeFlags              uint16
	BytesPerSectorShift      uint8
	SectorsPerClusterShift   uint8
	NumFATs                  uint8
	DriveSelect              uint8
	PercentUsed              uint8
	BootCode                 [390]byte
	BootSignature            uint16
}

// Marshal serializes the VBR into a sectorSize-byte sector, matching the
// exact field layout of the ExFAT boot sector (jump instruction and "EXFAT"
// name are fixed, not caller-controlled).
func (v *VolumeBootRecord) Marshal(sectorSize int) ([]byte, error) {
	if sectorSize < 512 {
		return nil, fmt.Errorf("exfat: sector size %d below minimum 512", sectorSize)
	}
	buf := make([]byte, sectorSize)
	buf[0], buf[1], buf[2] = 0xEB, 0x76, 0x90
	copy(buf[3:11], exfatFSName[:])
	binary.LittleEndian.PutUint64(buf[64:72], v.PartitionOffsetSectors)
	binary.LittleEndian.PutUint64(buf[72:80], v.VolumeLengthSectors)
	binary.LittleEndian.PutUint32(buf[80:84], v.FATOffsetSectors)
	binary.LittleEndian.PutUint32(buf[84:88], v.FATLengthSectors)
	binary.LittleEndian.PutUint32(buf[88:92], v.ClusterHeapOffsetSectors)
	binary.LittleEndian.PutUint32(buf[92:96], v.ClusterCount)
	binary.LittleEndian.PutUint32(buf[96:100], v.RootDirectoryCluster)
	binary.LittleEndian.PutUint32(buf[100:104], v.VolumeSerialNumber)
	rev := v.FSRevision
	if rev == 0 {
		rev = 0x0100
	}
	binary.LittleEndian.PutUint16(buf[104:106], rev)
	binary.LittleEndian.PutUint16(buf[106:108], v.VolumeFlags)
	buf[108] = v.BytesPerSectorShift
	buf[109] = v.SectorsPerClusterShift
	numFATs := v.NumFATs
	if numFATs == 0 {
		numFATs = 1
	}
	buf[110] = numFATs
	buf[111] = v.DriveSelect
	buf[112] = v.PercentUsed
	copy(buf[120:510], v.BootCode[:])
	sig := v.BootSignature
	if sig == 0 {
		sig = 0xAA55
	}
	binary.LittleEndian.PutUint16(buf[510:512], sig)
	return buf, nil
}

// UnmarshalVBR parses a sector back into a VolumeBootRecord. It does not
// validate the jump instruction or filesystem name; callers that need to
// reject non-ExFAT volumes check those bytes separately.
func UnmarshalVBR(sector []byte) (*VolumeBootRecord, error) {
	if len(sector) < 512 {
		return nil, fmt.Errorf("exfat: VBR sector too short: %d bytes", len(sector))
	}
	v := &VolumeBootRecord{
		PartitionOffsetSectors:   binary.LittleEndian.Uint64(sector[64:72]),
		VolumeLengthSectors:      binary.LittleEndian.Uint64(sector[72:80]),
		FATOffsetSectors:         binary.LittleEndian.Uint32(sector[80:84]),
		FATLengthSectors:         binary.LittleEndian.Uint32(sector[84:88]),
		ClusterHeapOffsetSectors: binary.LittleEndian.Uint32(sector[88:92]),
		ClusterCount:             binary.LittleEndian.Uint32(sector[92:96]),
		RootDirectoryCluster:     binary.LittleEndian.Uint32(sector[96:100]),
		VolumeSerialNumber:       binary.LittleEndian.Uint32(sector[100:104]),
		FSRevision:               binary.LittleEndian.Uint16(sector[104:106]),
		VolumeFlags:              binary.LittleEndian.Uint16(sector[106:108]),
		BytesPerSectorShift:      sector[108],
		SectorsPerClusterShift:   sector[109],
		NumFATs:                  sector[110],
		DriveSelect:              sector[111],
		PercentUsed:              sector[112],
		BootSignature:            binary.LittleEndian.Uint16(sector[510:512]),
	}
	copy(v.BootCode[:], sector[120:510])
	return v, nil
}

// IsExFAT reports whether a raw sector's jump instruction and filesystem
// name identify it as an ExFAT VBR.
func IsExFAT(sector []byte) bool {
	if len(sector) < 11 {
		return false
	}
	return sector[0] == 0xEB && sector[1] == 0x76 && sector[2] == 0x90 &&
		string(sector[3:11]) == "EXFAT   "
}

// ExtendedBootSector is one of the 8 sectors following the VBR; its
// content is caller-defined boot code, with a fixed trailing signature.
type ExtendedBootSector struct {
	Code []byte
}

// Marshal serializes the extended boot sector, zero-padding Code and
// appending the fixed 0xAA550000 trailer.
func (e *ExtendedBootSector) Marshal(sectorSize int) []byte {
	buf := make([]byte, sectorSize)
	copy(buf[:sectorSize-4], e.Code)
	binary.LittleEndian.PutUint32(buf[sectorSize-4:], 0xAA550000)
	return buf
}

// OEMParameters is sector 9 of the boot region: ten 48-byte GUID+parameter
// slots, unused here, zero-padded to sector size.
type OEMParameters struct{}

// Marshal serializes an empty OEM parameters sector.
func (OEMParameters) Marshal(sectorSize int) []byte {
	return make([]byte, sectorSize)
}

// ChecksumSector is the 12th sector of the boot region: the 32-bit VBR
// checksum value, repeated to fill the sector.
type ChecksumSector struct {
	Checksum uint32
}

// Marshal fills a sectorSize buffer with the checksum value repeated every
// 4 bytes, per spec.md 4.1.
func (c ChecksumSector) Marshal(sectorSize int) []byte {
	buf := make([]byte, sectorSize)
	for i := 0; i+4 <= sectorSize; i += 4 {
		binary.LittleEndian.PutUint32(buf[i:i+4], c.Checksum)
	}
	return buf
}

// BootRegion is the full 12-sector boot region (VBR, 8 extended boot
// sectors, OEM parameters, 1 reserved sector, checksum sector). Bytes 106,
// 107 and 112 of the VBR sector are excluded from the checksum it carries.
type BootRegion struct {
	VBR       VolumeBootRecord
	Extended  [8]ExtendedBootSector
	OEM       OEMParameters
	Reserved  [512]byte
	Checksum  ChecksumSector
}

// Marshal serializes the entire boot region to BootSectorsPerRegion
// sectors of sectorSize bytes each, computing the VBR checksum over the
// first 11 sectors before filling the checksum sector.
func (r *BootRegion) Marshal(sectorSize int) ([]byte, error) {
	out := make([]byte, 0, BootSectorsPerRegion*sectorSize)

	vbrBytes, err := r.VBR.Marshal(sectorSize)
	if err != nil {
		return nil, err
	}
	out = append(out, vbrBytes...)
	for i := range r.Extended {
		out = append(out, r.Extended[i].Marshal(sectorSize)...)
	}
	out = append(out, r.OEM.Marshal(sectorSize)...)
	reserved := make([]byte, sectorSize)
	copy(reserved, r.Reserved[:])
	out = append(out, reserved...)

	r.Checksum.Checksum = VBRChecksum(out)
	out = append(out, r.Checksum.Marshal(sectorSize)...)
	return out, nil
}

// SizeBytes returns the total size in bytes of a boot region at the given
// sector size.
func BootRegionSizeBytes(sectorSize int) int {
	return BootSectorsPerRegion * sectorSize
}
